package root

import (
	admincmd "github.com/paramvora-myacara/oz-listings-api/apps/cli/cmd/admin"
	migratecmd "github.com/paramvora-myacara/oz-listings-api/apps/cli/cmd/migrate"
	sessionscmd "github.com/paramvora-myacara/oz-listings-api/apps/cli/cmd/sessions"
)

func init() {
	Root().AddCommand(admincmd.Command())
	Root().AddCommand(migratecmd.Command())
	Root().AddCommand(sessionscmd.Command())
}
