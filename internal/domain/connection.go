package domain

// DatabaseDriver represents the type of database engine.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// DatabaseConnection holds the metadata for connecting to a database.
type DatabaseConnection struct {
	Driver   DatabaseDriver `json:"driver"`
	Host     string         `json:"host"`     // hostname, URI, or file path (sqlite)
	Port     int            `json:"port"`     // 0 for sqlite
	Database string         `json:"database"` // db name or empty for sqlite
	Username string         `json:"username"`
	Password string         `json:"password"`
	SSLMode  string         `json:"sslMode"`
}
