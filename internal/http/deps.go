// Package httpapi – dependency assembly.
//
// BuildDeps turns a loaded Config and an open database into the services the
// router needs.
package httpapi

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/config"
	"github.com/tbourn/chat-archiver/internal/line"
	"github.com/tbourn/chat-archiver/internal/services"
	"github.com/tbourn/chat-archiver/internal/settings"
	"github.com/tbourn/chat-archiver/internal/storage"
)

// BuildDeps wires the services behind the routes: settings resolution, the
// LINE client and profile cache, the attachment store and the dispatcher.
// props is the deployment-wide property tier; nil disables it.
func BuildDeps(db *gorm.DB, cfg config.Config, props settings.PropertyStore) (Deps, error) {
	resolver := settings.NewResolver(db, props)
	writer := &settings.Writer{DB: db}
	audit := services.DBAudit{DB: db}

	client := line.NewClient(cfg.Line, accessToken(resolver))
	profiles := &line.ProfileCache{DB: db, Fetcher: client, TTL: cfg.ProfileTTL}

	drive, err := storage.NewDrive(cfg.StorageRoot, cfg.PublicBaseURL, db)
	if err != nil {
		return Deps{}, fmt.Errorf("storage: %w", err)
	}

	dispatcher := &services.Dispatcher{
		Dedup:    &services.Deduplicator{DB: db, TTL: cfg.DedupTTL},
		Settings: resolver,
		Archiver: &services.Archiver{
			Settings: resolver,
			Content:  client,
			Store:    drive,
			Audit:    audit,
		},
		Commands: &services.CommandRouter{
			Settings:  resolver,
			Writer:    writer,
			Store:     drive,
			Messenger: client,
			Audit:     audit,
		},
		Messages: &services.MessageLogger{DB: db, Profiles: profiles},
		Audit:    audit,
	}

	deps := Deps{
		Dispatcher: dispatcher,
		Shares:     drive,
		DB:         db,
	}
	if cfg.AdminToken != "" {
		deps.Admin = &services.AdminService{DB: db, Settings: resolver}
	}
	return deps, nil
}

// accessToken resolves the channel access token at global scope on every
// call, so a rotated token takes effect without a restart.
func accessToken(r *settings.Resolver) line.TokenFunc {
	return func(ctx context.Context) (string, error) {
		tok, err := r.String(ctx, settings.KeyAccessToken, settings.Global)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(tok) == "" {
			return "", line.ErrNoToken
		}
		return tok, nil
	}
}
