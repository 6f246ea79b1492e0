package commands

import "github.com/bwmarrin/discordgo"

var permissionNames = map[int64]string{
	discordgo.PermissionAdministrator:          "Administrator",
	discordgo.PermissionManageGuild:            "Manage Server",
	discordgo.PermissionKickMembers:            "Kick Members",
	discordgo.PermissionBanMembers:             "Ban Members",
	discordgo.PermissionModerateMembers:        "Timeout Members",
	discordgo.PermissionManageMessages:         "Manage Messages",
	discordgo.PermissionManageChannels:         "Manage Channels",
	discordgo.PermissionManageRoles:            "Manage Roles",
	discordgo.PermissionManageNicknames:        "Manage Nicknames",
	discordgo.PermissionChangeNickname:         "Change Nickname",
	discordgo.PermissionVoiceMuteMembers:       "Mute Members",
	discordgo.PermissionVoiceDeafenMembers:     "Deafen Members",
	discordgo.PermissionVoiceMoveMembers:       "Move Members",
	discordgo.PermissionManageGuildExpressions: "Manage Expressions",
}

// HasPermission reports whether granted covers required.
// Administrator implies every permission.
func HasPermission(granted, required int64) bool {
	if required == 0 {
		return true
	}
	if granted&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return granted&required == required
}

// PermissionName returns a readable name for a permission bit
func PermissionName(p int64) string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return "required"
}
