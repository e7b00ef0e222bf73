package gorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/volcengine/apminsight-profiler-go/profiler"
	"github.com/volcengine/apminsight-profiler-go/session"
)

type order struct {
	ID    uint
	State string
}

// nothing listens on port 1: statements either stay dry or fail to connect
const dsn = "shop:secret@tcp(127.0.0.1:1)/shop"

func openDB(t *testing.T, dryRun bool) *gorm.DB {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       dsn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:                 dryRun,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	db, err = WrapDB("mysql", "127.0.0.1:1", "shop", db)
	require.NoError(t, err)
	return db
}

func newProfiledContext() (context.Context, *profiler.Profiler, *[]session.Record) {
	var exported []session.Record
	sess := session.New(session.ExporterFunc(func(records []session.Record) error {
		exported = append(exported, records...)
		return nil
	}))
	prof := profiler.New(sess, "test")
	return profiler.ContextWithProfiler(context.Background(), prof), prof, &exported
}

func TestWrapDB_Statements(t *testing.T) {
	db := openDB(t, true)
	ctx, prof, exported := newProfiledContext()

	var orders []order
	require.NoError(t, db.WithContext(ctx).Find(&orders).Error)
	require.NoError(t, db.WithContext(ctx).Create(&order{State: "created"}).Error)
	assert.Empty(t, prof.Inflight())

	require.NoError(t, prof.Submit())
	require.Len(t, *exported, 2)
	assert.Equal(t, session.Tags{
		TagService:     "127.0.0.1:1/shop",
		TagAction:      "query",
		TagTable:       "orders",
		session.EnvTag: "test",
	}, (*exported)[0].Tags)
	assert.Equal(t, "mysql", (*exported)[0].Name)
	assert.Equal(t, "create", (*exported)[1].Tags[TagAction])
}

func TestWrapDB_Error(t *testing.T) {
	db := openDB(t, false)
	ctx, prof, exported := newProfiledContext()

	var orders []order
	require.Error(t, db.WithContext(ctx).Find(&orders).Error)

	require.NoError(t, prof.Submit())
	require.Len(t, *exported, 1)
	assert.Equal(t, "true", (*exported)[0].Tags[TagError])
}

func TestWrapDB_WithoutProfiler(t *testing.T) {
	db := openDB(t, true)
	var orders []order
	assert.NoError(t, db.WithContext(context.Background()).Find(&orders).Error)
	assert.NoError(t, db.Find(&orders).Error)
}
