package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Options describes how to reach MySQL.  LockWaitTimeout bounds how long a
// statement waits for a row lock before InnoDB gives up with error 1205.
type Options struct {
	User            string
	Pass            string
	Host            string
	Port            string
	Name            string
	LockWaitTimeout int // seconds; 0 keeps the server default
}

// DSN builds the go-sql-driver connection string for o.
func (o Options) DSN() string {
	auth := o.User
	if o.Pass != "" {
		auth = fmt.Sprintf("%s:%s", o.User, o.Pass)
	}
	params := url.Values{}
	params.Set("charset", "utf8mb4")
	// parseTime=true -> DATETIME/DATE -> time.Time | loc=UTC keeps times consistent
	params.Set("parseTime", "true")
	params.Set("loc", "UTC")
	// report matched rows instead of changed rows so a guarded UPDATE that
	// matches but writes the same value still counts as a hit
	params.Set("clientFoundRows", "true")
	if o.LockWaitTimeout > 0 {
		// unknown DSN params are sent as session system variables
		params.Set("innodb_lock_wait_timeout", strconv.Itoa(o.LockWaitTimeout))
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?%s", auth, o.Host, o.Port, o.Name, params.Encode())
}

// Open connects to MySQL and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", o.DSN())
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
