package repomanager

import (
	"context"
	"database/sql"

	"github.com/mzhurin/convo/internal/dbx"
	"github.com/mzhurin/convo/internal/server/repositories/contacts"
	"github.com/mzhurin/convo/internal/server/repositories/messages"
	"github.com/mzhurin/convo/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
	Contacts(db dbx.DBTX) contacts.Repository
}
