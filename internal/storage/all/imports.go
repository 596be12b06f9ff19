// Package all wires every built-in sink backend into the storage factory.
//
// Import it for side effects only:
//
//	import _ "reviewetl/internal/storage/all"
//
// after which storage.New accepts the kinds file, s3, sqlite, postgres,
// mssql, mysql and snowflake. A binary that needs fewer backends can import
// the individual packages instead.
package all

import (
	_ "reviewetl/internal/storage/file"
	_ "reviewetl/internal/storage/mssql"
	_ "reviewetl/internal/storage/mysql"
	_ "reviewetl/internal/storage/postgres"
	_ "reviewetl/internal/storage/s3"
	_ "reviewetl/internal/storage/snowflake"
	_ "reviewetl/internal/storage/sqlite"
)
