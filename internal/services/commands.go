// Package services – CommandRouter
package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/settings"
)

// Command names, as reported by Route and counted in metrics.
const (
	CmdGetLink    = "get_link"
	CmdGetGroupID = "get_group_id"
	CmdGetUserID  = "get_user_id"
	CmdGetConfig  = "get_config"
	CmdSetConfig  = "set_config"
)

// NoGroupReply answers get-group-id outside of a group.
const NoGroupReply = "No group id"

// CommandRouter matches text messages against the command strings configured
// for the conversation and runs the first match.
type CommandRouter struct {
	Settings  *settings.Resolver
	Writer    *settings.Writer
	Store     AttachmentStore
	Messenger Messenger
	Audit     AuditLog
}

type command struct {
	name string
	key  settings.Key
	// prefix commands take arguments after the command string.
	prefix bool
	run    func(ctx context.Context, ev domain.ChatEvent, args string) error
}

func (r *CommandRouter) commands() []command {
	return []command{
		{name: CmdGetLink, key: settings.KeyCommandGetLink, run: r.getLink},
		{name: CmdGetGroupID, key: settings.KeyCommandGroupID, run: r.getGroupID},
		{name: CmdGetUserID, key: settings.KeyCommandUserID, run: r.getUserID},
		{name: CmdGetConfig, key: settings.KeyCommandConfig, run: r.getConfig},
		{name: CmdSetConfig, key: settings.KeyCommandSet, prefix: true, run: r.setConfig},
	}
}

// Route runs at most one command for ev and returns its name, or "" when the
// text matched nothing.
func (r *CommandRouter) Route(ctx context.Context, ev domain.ChatEvent) (string, error) {
	if ev.Message == nil {
		return "", ErrNoMessage
	}
	text := strings.TrimSpace(ev.Message.Text)
	if text == "" {
		return "", nil
	}
	scope := settings.ScopeID(ev.ScopeID())

	for _, cmd := range r.commands() {
		want, err := r.Settings.String(ctx, cmd.key, scope)
		if err != nil {
			return "", err
		}
		if want == "" {
			continue
		}
		args, ok := match(text, want, cmd.prefix)
		if !ok {
			continue
		}
		commandsTotal.WithLabelValues(cmd.name).Inc()
		return cmd.name, cmd.run(ctx, ev, args)
	}
	return "", nil
}

// match compares text with a command string. Prefix commands also match when
// the command is followed by whitespace and arguments.
func match(text, cmd string, prefix bool) (string, bool) {
	if text == cmd {
		return "", true
	}
	if !prefix || !strings.HasPrefix(text, cmd) {
		return "", false
	}
	rest := text[len(cmd):]
	if r := []rune(rest); len(r) == 0 || !unicode.IsSpace(r[0]) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// getLink shares the conversation folder when it exists. The ALLOW_GET_LINK
// toggle is resolved for the requesting user.
func (r *CommandRouter) getLink(ctx context.Context, ev domain.ChatEvent, _ string) error {
	userID := ev.Source.UserID
	allowed, err := r.Settings.Bool(ctx, settings.KeyAllowGetLink, settings.ScopeID(userID))
	if err != nil {
		return err
	}
	if !allowed {
		log.Debug().Str("user_id", userID).Msg("get link disabled for user")
		return nil
	}

	scope := ev.ScopeID()
	exists, err := r.Store.FolderExists(ctx, scope)
	if err != nil {
		return fmt.Errorf("check folder: %w", err)
	}
	if !exists {
		if err := r.Audit.Append(ctx, AuditGetLinkFailed, fmt.Sprintf("%s Get link failed %s", userID, scope)); err != nil {
			return err
		}
		return r.Messenger.Reply(ctx, ev.ReplyToken, NotFoundReply)
	}

	url, err := r.Store.Share(ctx, scope)
	if err != nil {
		return fmt.Errorf("share folder: %w", err)
	}
	if err := r.Audit.Append(ctx, AuditGetLink, fmt.Sprintf("%s Get link %s", userID, scope)); err != nil {
		return err
	}
	return r.Messenger.Reply(ctx, ev.ReplyToken, url)
}

func (r *CommandRouter) getGroupID(ctx context.Context, ev domain.ChatEvent, _ string) error {
	reply := ev.Source.GroupID
	if reply == "" {
		reply = NoGroupReply
	}
	if err := r.Audit.Append(ctx, AuditGetGroupID, fmt.Sprintf("%s Get group id %s", ev.Source.UserID, ev.ScopeID())); err != nil {
		return err
	}
	return r.Messenger.Reply(ctx, ev.ReplyToken, reply)
}

func (r *CommandRouter) getUserID(ctx context.Context, ev domain.ChatEvent, _ string) error {
	if err := r.Audit.Append(ctx, AuditGetUserID, fmt.Sprintf("%s Get user id %s", ev.Source.UserID, ev.ScopeID())); err != nil {
		return err
	}
	return r.Messenger.Reply(ctx, ev.ReplyToken, ev.Source.UserID)
}

// getConfig replies with one "KEY = value" line per non-secret setting.
func (r *CommandRouter) getConfig(ctx context.Context, ev domain.ChatEvent, _ string) error {
	entries, err := r.Settings.Snapshot(ctx, settings.ScopeID(ev.ScopeID()))
	if err != nil {
		return err
	}
	if err := r.Audit.Append(ctx, AuditGetConfig, fmt.Sprintf("%s Get config %s", ev.Source.UserID, ev.ScopeID())); err != nil {
		return err
	}
	return r.Messenger.Reply(ctx, ev.ReplyToken, RenderConfig(entries))
}

// RenderConfig formats resolved settings as "KEY = value" lines.
func RenderConfig(entries []settings.Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, string(e.Key)+" = "+e.Value.Raw())
	}
	return strings.Join(lines, "\n")
}

// setConfig handles "KEY=value" (or "KEY value"). Rejected writes are
// dropped without a reply.
func (r *CommandRouter) setConfig(ctx context.Context, ev domain.ChatEvent, args string) error {
	scope := ev.ScopeID()
	allowed, err := r.Settings.Bool(ctx, settings.KeyAllowOverwrite, settings.ScopeID(scope))
	if err != nil {
		return err
	}
	if !allowed {
		log.Debug().Str("scope_id", scope).Msg("set config disabled for scope")
		return nil
	}

	key, raw, ok := parseAssignment(args)
	if !ok {
		log.Debug().Str("scope_id", scope).Str("args", args).Msg("set config: malformed arguments")
		return nil
	}
	outcome, err := r.Writer.TrySet(ctx, key, scope, raw)
	if err != nil {
		return err
	}
	if outcome != settings.Applied {
		log.Debug().Str("scope_id", scope).Str("key", key).Str("outcome", outcome.String()).Msg("set config rejected")
		return nil
	}

	// Report what was stored for this scope, not the effective value: a
	// deployment property can still shadow the override.
	k, _ := settings.ParseKey(key)
	msg := fmt.Sprintf("%s = %s", k, settings.Coerce(raw).Raw())
	if err := r.Audit.Append(ctx, AuditSetConfig, fmt.Sprintf("%s Set config %s %s", ev.Source.UserID, scope, msg)); err != nil {
		return err
	}
	return r.Messenger.Reply(ctx, ev.ReplyToken, msg)
}

func parseAssignment(args string) (key, value string, ok bool) {
	if k, v, found := strings.Cut(args, "="); found {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		return k, v, k != "" && v != ""
	}
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], strings.TrimSpace(strings.TrimPrefix(args, fields[0])), true
}
