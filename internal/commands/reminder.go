package commands

import (
	"context"
	"fmt"

	boterrors "github.com/yourusername/guildbot/internal/errors"
	"github.com/yourusername/guildbot/internal/reminder"
)

// ReminderScheduler stores and arms reminders
type ReminderScheduler interface {
	Add(ctx context.Context, guildID, channelID, userID, text string, minutes int) (reminder.Reminder, error)
}

// ReminderCommand implements /reminder
type ReminderCommand struct {
	meta
	scheduler ReminderScheduler
}

// NewReminderCommand creates a new reminder command
func NewReminderCommand(scheduler ReminderScheduler) *ReminderCommand {
	return &ReminderCommand{
		meta: meta{
			name:     "reminder",
			help:     "Remind you of something in this channel",
			category: CategoryUtility,
			options: []Option{
				{Name: "text", Description: "What to remind you of", Type: OptionString, Required: true, MaxLength: 1000},
				{Name: "minutes", Description: "In how many minutes (1-1440)", Type: OptionInteger, Required: true,
					MinValue: float(reminder.MinMinutes), MaxValue: float(reminder.MaxMinutes)},
			},
		},
		scheduler: scheduler,
	}
}

// Execute runs the reminder command
func (c *ReminderCommand) Execute(ctx *Context) (*Response, error) {
	minutes, ok := ctx.Int("minutes")
	if !ok {
		return nil, boterrors.NewInvalidSyntaxError("reminder", "/reminder text:<text> minutes:<1-1440>")
	}
	r, err := c.scheduler.Add(ctx.Context(), ctx.GuildID, ctx.ChannelID, ctx.UserID, ctx.String("text"), int(minutes))
	if err != nil {
		return nil, err
	}
	return NewEphemeral(fmt.Sprintf("⏰ Reminder set for <t:%d:t> (<t:%d:R>).", r.DueAt.Unix(), r.DueAt.Unix())), nil
}
