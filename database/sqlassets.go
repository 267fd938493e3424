package sqlassets

import _ "embed"

//go:embed schema/listings.sql
var ListingsSQL string

//go:embed schema/listing_versions.sql
var ListingVersionsSQL string

//go:embed schema/listing_current_version_fk.sql
var ListingCurrentVersionFKSQL string

//go:embed schema/admin_users.sql
var AdminUsersSQL string

//go:embed schema/admin_user_listings.sql
var AdminUserListingsSQL string

//go:embed schema/admin_sessions.sql
var AdminSessionsSQL string

// Ordered returns every schema asset in dependency order. The pointer from
// listings to listing_versions is added last because the two tables
// reference each other.
func Ordered() []string {
	return []string{
		ListingsSQL,
		ListingVersionsSQL,
		ListingCurrentVersionFKSQL,
		AdminUsersSQL,
		AdminUserListingsSQL,
		AdminSessionsSQL,
	}
}
