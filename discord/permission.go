package discord

import (
	"strconv"
	"strings"
)

// Permissions is a permission bitfield. The API encodes it as a string; older
// payloads may still carry a plain number, so both are accepted.
type Permissions uint64

const (
	PermissionCreateInstantInvite Permissions = 1 << iota
	PermissionKickMembers
	PermissionBanMembers
	PermissionAdministrator
	PermissionManageChannels
	PermissionManageGuild
	PermissionAddReactions
	PermissionViewAuditLog
	PermissionPrioritySpeaker
	PermissionStream
	PermissionViewChannel
	PermissionSendMessages
	PermissionSendTTSMessages
	PermissionManageMessages
	PermissionEmbedLinks
	PermissionAttachFiles
	PermissionReadMessageHistory
	PermissionMentionEveryone
	PermissionUseExternalEmojis
	_
	PermissionConnect
	PermissionSpeak
	PermissionMuteMembers
	PermissionDeafenMembers
	PermissionMoveMembers
	PermissionUseVAD
	PermissionChangeNickname
	PermissionManageNicknames
	PermissionManageRoles
	PermissionManageWebhooks
	PermissionManageEmojis
)

// Has returns true if every bit of perm is set.
func (p Permissions) Has(perm Permissions) bool {
	return HasFlag(uint64(p), uint64(perm))
}

// Add returns p with perm set.
func (p Permissions) Add(perm Permissions) Permissions {
	return p | perm
}

// Remove returns p with perm cleared.
func (p Permissions) Remove(perm Permissions) Permissions {
	return p &^ perm
}

func (p Permissions) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(p), 10) + `"`), nil
}

func (p *Permissions) UnmarshalJSON(v []byte) error {
	s := strings.Trim(string(v), `"`)
	if s == "null" || s == "" {
		*p = 0
		return nil
	}

	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}

	*p = Permissions(u)
	return nil
}
