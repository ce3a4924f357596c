package cmd

const (
	RootCmdName  = "carrental"
	RootCmdShort = "Car rental listing API"
	RootCmdLong  = `carrental serves car rental search results over HTTP.

Listings are imported from search-result exports with "seed" and queried
through /cars, /filters and /locations.`

	ServeCmdName  = "serve"
	ServeCmdShort = "Start the HTTP API"
	ServeCmdLong  = "Start the HTTP API and serve until SIGINT or SIGTERM."

	MigrateCmdName  = "migrate"
	MigrateCmdShort = "Create or update the database schema"
	MigrateCmdLong  = "Run schema migrations for cars, agencies, providers and prices."

	SeedCmdName  = "seed"
	SeedCmdShort = "Import a search-results export"
	SeedCmdLong  = `Import a {"results": [...]} export in a single transaction.

Rows are upserted by natural key, so running the same file twice is safe.`
)
