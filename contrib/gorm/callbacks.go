package gorm

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/volcengine/apminsight-profiler-go/profiler"
	"github.com/volcengine/apminsight-profiler-go/session"
)

const (
	TagService = "service"
	TagAction  = "action"
	TagTable   = "table"
	TagError   = "error"
)

type contextKey string

var contextKeyItem = contextKey("profile_item")

type registerFunc func(name string, fn func(*gorm.DB)) error

// WrapDB records one item named dbType per create, update, delete, query,
// row and raw statement run with a profiled context (db.WithContext).
func WrapDB(dbType, endpoint, dbName string, db *gorm.DB) (*gorm.DB, error) {
	if dbType == "" {
		dbType = "db"
	}
	callService := endpoint + "/" + dbName
	cb := db.Callback()
	hooks := []struct {
		action string
		before registerFunc
		after  registerFunc
	}{
		{"gorm:create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"gorm:update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"gorm:delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"gorm:query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"gorm:row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"gorm:raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		action := strings.TrimPrefix(h.action, "gorm:")
		if err := h.before("ai-profiler:before_"+action, newBefore(dbType, callService, action)); err != nil {
			return nil, err
		}
		if err := h.after("ai-profiler:after_"+action, newAfter()); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func newBefore(dbType, callService, action string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db == nil || db.Statement == nil || db.Statement.Context == nil {
			return
		}
		prof := profiler.FromContext(db.Statement.Context)
		if prof == nil {
			return
		}
		tags := session.Tags{
			TagService: callService,
			TagAction:  action,
		}
		if db.Statement.Table != "" {
			tags[TagTable] = db.Statement.Table
		}
		item := prof.CreateItem(dbType, tags, 1)
		db.Statement.Context = context.WithValue(db.Statement.Context, contextKeyItem, item)
	}
}

func newAfter() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db == nil || db.Statement == nil || db.Statement.Context == nil {
			return
		}
		item, ok := db.Statement.Context.Value(contextKeyItem).(*session.Item)
		if !ok {
			return
		}
		if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
			item.SetTag(TagError, strconv.FormatBool(true))
		}
		profiler.FromContext(db.Statement.Context).AddItem(item)
	}
}
