package router

import (
	"context"
	"net/url"

	"guildsync/pkg/wire"
)

// Servers reads servers.
type Servers struct{ resource }

// Fetch returns one server.
func (r *Servers) Fetch(ctx context.Context, serverID string) (wire.Server, error) {
	return call[wire.Server](ctx, r.resource, get(path("servers", serverID), nil), "server")
}

// Members manages server memberships.
type Members struct{ resource }

// Fetch returns one member.
func (r *Members) Fetch(ctx context.Context, serverID, userID string) (wire.ServerMember, error) {
	return call[wire.ServerMember](ctx, r.resource, get(path("servers", serverID, "members", userID), nil), "member")
}

// FetchAll lists member summaries.
func (r *Members) FetchAll(ctx context.Context, serverID string) ([]wire.ServerMember, error) {
	return call[[]wire.ServerMember](ctx, r.resource, get(path("servers", serverID, "members"), nil), "members")
}

// UpdateNickname sets a member's nickname and returns the stored value.
func (r *Members) UpdateNickname(ctx context.Context, serverID, userID, nickname string) (string, error) {
	return call[string](ctx, r.resource,
		put(path("servers", serverID, "members", userID, "nickname"), wire.NicknameUpdate{Nickname: nickname}),
		"nickname",
	)
}

// ResetNickname clears a member's nickname.
func (r *Members) ResetNickname(ctx context.Context, serverID, userID string) error {
	return exec(ctx, r.resource, del(path("servers", serverID, "members", userID, "nickname")))
}

// Kick removes a member from the server.
func (r *Members) Kick(ctx context.Context, serverID, userID string) error {
	return exec(ctx, r.resource, del(path("servers", serverID, "members", userID)))
}

// Bans manages server bans.
type Bans struct{ resource }

// Create bans a user.
func (r *Bans) Create(ctx context.Context, serverID, userID, reason string) (wire.ServerMemberBan, error) {
	return call[wire.ServerMemberBan](ctx, r.resource,
		post(path("servers", serverID, "bans", userID), wire.BanCreate{Reason: reason}),
		"serverMemberBan",
	)
}

// Fetch returns one ban.
func (r *Bans) Fetch(ctx context.Context, serverID, userID string) (wire.ServerMemberBan, error) {
	return call[wire.ServerMemberBan](ctx, r.resource, get(path("servers", serverID, "bans", userID), nil), "serverMemberBan")
}

// FetchAll lists bans.
func (r *Bans) FetchAll(ctx context.Context, serverID string) ([]wire.ServerMemberBan, error) {
	return call[[]wire.ServerMemberBan](ctx, r.resource, get(path("servers", serverID, "bans"), nil), "serverMemberBans")
}

// Delete lifts a ban.
func (r *Bans) Delete(ctx context.Context, serverID, userID string) error {
	return exec(ctx, r.resource, del(path("servers", serverID, "bans", userID)))
}

// Roles manages member role assignments.
type Roles struct{ resource }

// FetchMemberRoles lists the role ids held by a member.
func (r *Roles) FetchMemberRoles(ctx context.Context, serverID, userID string) ([]int, error) {
	return call[[]int](ctx, r.resource, get(path("servers", serverID, "members", userID, "roles"), nil), "roleIds")
}

// Award grants a role to a member.
func (r *Roles) Award(ctx context.Context, serverID, userID string, roleID int) error {
	return exec(ctx, r.resource, put(path("servers", serverID, "members", userID, "roles", roleID), nil))
}

// Revoke removes a role from a member.
func (r *Roles) Revoke(ctx context.Context, serverID, userID string, roleID int) error {
	return exec(ctx, r.resource, del(path("servers", serverID, "members", userID, "roles", roleID)))
}

// Webhooks manages server webhooks.
type Webhooks struct{ resource }

// Create adds a webhook to a channel.
func (r *Webhooks) Create(ctx context.Context, serverID string, body wire.WebhookCreate) (wire.Webhook, error) {
	return call[wire.Webhook](ctx, r.resource, post(path("servers", serverID, "webhooks"), body), "webhook")
}

// Fetch returns one webhook.
func (r *Webhooks) Fetch(ctx context.Context, serverID, webhookID string) (wire.Webhook, error) {
	return call[wire.Webhook](ctx, r.resource, get(path("servers", serverID, "webhooks", webhookID), nil), "webhook")
}

// FetchAll lists webhooks, optionally restricted to one channel.
func (r *Webhooks) FetchAll(ctx context.Context, serverID, channelID string) ([]wire.Webhook, error) {
	var query url.Values
	if channelID != "" {
		query = url.Values{"channelId": []string{channelID}}
	}

	return call[[]wire.Webhook](ctx, r.resource, get(path("servers", serverID, "webhooks"), query), "webhooks")
}

// Update renames or moves a webhook.
func (r *Webhooks) Update(ctx context.Context, serverID, webhookID string, body wire.WebhookUpdate) (wire.Webhook, error) {
	return call[wire.Webhook](ctx, r.resource, put(path("servers", serverID, "webhooks", webhookID), body), "webhook")
}

// Delete removes a webhook.
func (r *Webhooks) Delete(ctx context.Context, serverID, webhookID string) error {
	return exec(ctx, r.resource, del(path("servers", serverID, "webhooks", webhookID)))
}
