package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campus-timetable-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "pw", Name: "timetable"})
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=timetable sslmode=disable application_name=campus-timetable-api connect_timeout=5", dsn)

	dsn = DSN(config.DatabaseConfig{Host: "db", Port: 6432, User: "app", Name: "timetable", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
	assert.Contains(t, dsn, "password=''")
}

func TestDSNQuotesSpecialValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: `it's a \secret`, Name: "timetable"})
	assert.Contains(t, dsn, `password='it\'s a \\secret'`)
}
