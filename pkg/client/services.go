package client

import (
	"context"
	"errors"
	"fmt"

	"guildsync/pkg/guildsync"
	"guildsync/pkg/wire"
)

// writeThrough caches a REST result. A result whose parent is not cached is
// returned detached instead of failing the call that produced it.
func writeThrough[P, V any](payload P, upsert func(P) (V, bool, error), detached func(P) V) (V, error) {
	value, _, err := upsert(payload)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, guildsync.ErrUnresolved) {
		return detached(payload), nil
	}

	var zero V
	return zero, fmt.Errorf("cache result: %w", err)
}

func writeThroughAll[P, V any](payloads []P, upsert func(P) (V, bool, error), detached func(P) V) ([]V, error) {
	values := make([]V, 0, len(payloads))
	for _, payload := range payloads {
		value, err := writeThrough(payload, upsert, detached)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}

	return values, nil
}

// created adapts an upsert that does not report creation.
func created[P, V any](upsert func(P) (V, error)) func(P) (V, bool, error) {
	return func(payload P) (V, bool, error) {
		value, err := upsert(payload)
		return value, false, err
	}
}

// ServerService reads servers.
type ServerService struct{ c *Client }

// Fetch loads a server and caches it.
func (s *ServerService) Fetch(ctx context.Context, serverID string) (*guildsync.Server, error) {
	payload, err := s.c.router.Servers.Fetch(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("fetch server %s: %w", serverID, err)
	}

	server, _, err := s.c.store.UpsertServer(payload)
	if err != nil {
		return nil, fmt.Errorf("fetch server %s: %w", serverID, err)
	}

	return server, nil
}

// ChannelService manages server channels.
type ChannelService struct{ c *Client }

func (s *ChannelService) cache(payload wire.ServerChannel) (*guildsync.Channel, error) {
	channel, _, err := s.c.store.UpsertChannel(payload)
	if err != nil {
		return nil, fmt.Errorf("cache channel %s: %w", payload.ID, err)
	}

	return channel, nil
}

// Create adds a channel to serverID.
func (s *ChannelService) Create(ctx context.Context, serverID string, body wire.ChannelCreate) (*guildsync.Channel, error) {
	payload, err := s.c.router.Channels.Create(ctx, serverID, body)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	return s.cache(payload)
}

// Fetch loads a channel and caches it.
func (s *ChannelService) Fetch(ctx context.Context, channelID string) (*guildsync.Channel, error) {
	payload, err := s.c.router.Channels.Fetch(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}

	return s.cache(payload)
}

// Update patches a channel.
func (s *ChannelService) Update(ctx context.Context, channelID string, body wire.ChannelUpdate) (*guildsync.Channel, error) {
	payload, err := s.c.router.Channels.Update(ctx, channelID, body)
	if err != nil {
		return nil, fmt.Errorf("update channel %s: %w", channelID, err)
	}

	return s.cache(payload)
}

// Delete removes a channel and its cached content.
func (s *ChannelService) Delete(ctx context.Context, channelID string) error {
	if err := s.c.router.Channels.Delete(ctx, channelID); err != nil {
		return fmt.Errorf("delete channel %s: %w", channelID, err)
	}
	s.c.store.RemoveChannel(channelID)

	return nil
}

// MemberService manages server memberships and role grants.
type MemberService struct{ c *Client }

func (s *MemberService) upsert(serverID string) func(wire.ServerMember) (*guildsync.Member, bool, error) {
	return func(payload wire.ServerMember) (*guildsync.Member, bool, error) {
		return s.c.store.UpsertMember(serverID, payload)
	}
}

func detachedMember(serverID string) func(wire.ServerMember) *guildsync.Member {
	return func(payload wire.ServerMember) *guildsync.Member {
		return guildsync.NewMember(serverID, payload)
	}
}

// Fetch loads one member.
func (s *MemberService) Fetch(ctx context.Context, serverID, userID string) (*guildsync.Member, error) {
	payload, err := s.c.router.Members.Fetch(ctx, serverID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch member %s/%s: %w", serverID, userID, err)
	}

	return writeThrough(payload, s.upsert(serverID), detachedMember(serverID))
}

// FetchAll loads every member of serverID.
func (s *MemberService) FetchAll(ctx context.Context, serverID string) ([]*guildsync.Member, error) {
	payloads, err := s.c.router.Members.FetchAll(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("fetch members of %s: %w", serverID, err)
	}

	return writeThroughAll(payloads, s.upsert(serverID), detachedMember(serverID))
}

// UpdateNickname sets a nickname and returns the stored value.
func (s *MemberService) UpdateNickname(ctx context.Context, serverID, userID, nickname string) (string, error) {
	stored, err := s.c.router.Members.UpdateNickname(ctx, serverID, userID, nickname)
	if err != nil {
		return "", fmt.Errorf("update nickname %s/%s: %w", serverID, userID, err)
	}
	s.setNickname(serverID, userID, &stored)

	return stored, nil
}

// ResetNickname clears a nickname.
func (s *MemberService) ResetNickname(ctx context.Context, serverID, userID string) error {
	if err := s.c.router.Members.ResetNickname(ctx, serverID, userID); err != nil {
		return fmt.Errorf("reset nickname %s/%s: %w", serverID, userID, err)
	}
	s.setNickname(serverID, userID, nil)

	return nil
}

// setNickname updates a cached member; uncached members are left to the
// gateway event.
func (s *MemberService) setNickname(serverID, userID string, nickname *string) {
	_, _ = s.c.store.SetMemberNickname(serverID, userID, nickname)
}

// Kick removes a member.
func (s *MemberService) Kick(ctx context.Context, serverID, userID string) error {
	if err := s.c.router.Members.Kick(ctx, serverID, userID); err != nil {
		return fmt.Errorf("kick %s/%s: %w", serverID, userID, err)
	}
	s.c.store.RemoveMember(serverID, userID)

	return nil
}

// FetchRoles loads a member's role ids and records them on the cached member.
func (s *MemberService) FetchRoles(ctx context.Context, serverID, userID string) ([]int, error) {
	roleIDs, err := s.c.router.Roles.FetchMemberRoles(ctx, serverID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch roles %s/%s: %w", serverID, userID, err)
	}
	s.c.store.SetMemberRoles(serverID, []wire.MemberRoleIDs{{UserID: userID, RoleIDs: roleIDs}})

	return roleIDs, nil
}

// AwardRole grants roleID.
func (s *MemberService) AwardRole(ctx context.Context, serverID, userID string, roleID int) error {
	if err := s.c.router.Roles.Award(ctx, serverID, userID, roleID); err != nil {
		return fmt.Errorf("award role %d to %s/%s: %w", roleID, serverID, userID, err)
	}

	return nil
}

// RevokeRole removes roleID.
func (s *MemberService) RevokeRole(ctx context.Context, serverID, userID string, roleID int) error {
	if err := s.c.router.Roles.Revoke(ctx, serverID, userID, roleID); err != nil {
		return fmt.Errorf("revoke role %d from %s/%s: %w", roleID, serverID, userID, err)
	}

	return nil
}

// BanService manages server bans.
type BanService struct{ c *Client }

func (s *BanService) upsert(serverID string) func(wire.ServerMemberBan) (*guildsync.Ban, bool, error) {
	return created(func(payload wire.ServerMemberBan) (*guildsync.Ban, error) {
		return s.c.store.UpsertBan(serverID, payload)
	})
}

func detachedBan(serverID string) func(wire.ServerMemberBan) *guildsync.Ban {
	return func(payload wire.ServerMemberBan) *guildsync.Ban {
		return guildsync.NewBan(serverID, payload)
	}
}

// Create bans userID.
func (s *BanService) Create(ctx context.Context, serverID, userID, reason string) (*guildsync.Ban, error) {
	payload, err := s.c.router.Bans.Create(ctx, serverID, userID, reason)
	if err != nil {
		return nil, fmt.Errorf("ban %s/%s: %w", serverID, userID, err)
	}

	return writeThrough(payload, s.upsert(serverID), detachedBan(serverID))
}

// Fetch loads one ban.
func (s *BanService) Fetch(ctx context.Context, serverID, userID string) (*guildsync.Ban, error) {
	payload, err := s.c.router.Bans.Fetch(ctx, serverID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch ban %s/%s: %w", serverID, userID, err)
	}

	return writeThrough(payload, s.upsert(serverID), detachedBan(serverID))
}

// FetchAll loads every ban of serverID.
func (s *BanService) FetchAll(ctx context.Context, serverID string) ([]*guildsync.Ban, error) {
	payloads, err := s.c.router.Bans.FetchAll(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("fetch bans of %s: %w", serverID, err)
	}

	return writeThroughAll(payloads, s.upsert(serverID), detachedBan(serverID))
}

// Delete lifts a ban.
func (s *BanService) Delete(ctx context.Context, serverID, userID string) error {
	if err := s.c.router.Bans.Delete(ctx, serverID, userID); err != nil {
		return fmt.Errorf("unban %s/%s: %w", serverID, userID, err)
	}
	s.c.store.RemoveBan(serverID, userID)

	return nil
}

// WebhookService manages server webhooks.
type WebhookService struct{ c *Client }

// Create adds a webhook to serverID.
func (s *WebhookService) Create(ctx context.Context, serverID string, body wire.WebhookCreate) (*guildsync.Webhook, error) {
	payload, err := s.c.router.Webhooks.Create(ctx, serverID, body)
	if err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}

	return writeThrough(payload, s.c.store.UpsertWebhook, guildsync.NewWebhook)
}

// Fetch loads one webhook.
func (s *WebhookService) Fetch(ctx context.Context, serverID, webhookID string) (*guildsync.Webhook, error) {
	payload, err := s.c.router.Webhooks.Fetch(ctx, serverID, webhookID)
	if err != nil {
		return nil, fmt.Errorf("fetch webhook %s: %w", webhookID, err)
	}

	return writeThrough(payload, s.c.store.UpsertWebhook, guildsync.NewWebhook)
}

// FetchAll loads the webhooks of serverID, optionally narrowed to channelID.
func (s *WebhookService) FetchAll(ctx context.Context, serverID, channelID string) ([]*guildsync.Webhook, error) {
	payloads, err := s.c.router.Webhooks.FetchAll(ctx, serverID, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch webhooks of %s: %w", serverID, err)
	}

	return writeThroughAll(payloads, s.c.store.UpsertWebhook, guildsync.NewWebhook)
}

// Update renames or moves a webhook.
func (s *WebhookService) Update(ctx context.Context, serverID, webhookID string, body wire.WebhookUpdate) (*guildsync.Webhook, error) {
	payload, err := s.c.router.Webhooks.Update(ctx, serverID, webhookID, body)
	if err != nil {
		return nil, fmt.Errorf("update webhook %s: %w", webhookID, err)
	}

	return writeThrough(payload, s.c.store.UpsertWebhook, guildsync.NewWebhook)
}

// Delete removes a webhook.
func (s *WebhookService) Delete(ctx context.Context, serverID, webhookID string) error {
	if err := s.c.router.Webhooks.Delete(ctx, serverID, webhookID); err != nil {
		return fmt.Errorf("delete webhook %s: %w", webhookID, err)
	}
	s.c.store.RemoveWebhook(serverID, webhookID)

	return nil
}
