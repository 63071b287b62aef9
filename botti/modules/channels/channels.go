// Package channels keeps the throwaway channels clean: everything
// older than the retention window is deleted once an hour.
package channels

import (
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/modules"
)

const retention = 3 * time.Hour

// Bulk deletion refuses messages past this age, those go one by one.
const bulkDeleteMaxAge = 14 * 24 * time.Hour

type Module struct {
	modules.Base
	bot *botti.Bot

	mu       sync.Mutex
	lastHour time.Time

	now func() time.Time
}

func New(b *botti.Bot) *Module {
	return &Module{bot: b, now: time.Now}
}

func (m *Module) Name() string { return "channels" }

// OnMessage triggers a purge when the clock rolls into a new hour, so
// the channels also get cleaned on guilds too quiet for the scheduler
// to matter.
func (m *Module) OnMessage(e *events.MessageCreate) {
	if m.purgeDue(m.now()) {
		go m.Purge()
	}
}

func (m *Module) purgeDue(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	hour := now.Truncate(time.Hour)
	if !hour.After(m.lastHour) {
		return false
	}
	m.lastHour = hour
	return true
}

// Purge deletes every message older than the retention window from the
// configured channels.
func (m *Module) Purge() {
	cutoff := m.now().Add(-retention)
	for _, channelID := range m.bot.Cfg.Guild.PurgeChannels {
		if err := m.purgeChannel(channelID, cutoff); err != nil {
			slog.Error("Failed to purge channel",
				slog.String("type", "sys"),
				slog.String("channel_id", channelID.String()),
				slog.Any("error", err))
		}
	}
}

func (m *Module) purgeChannel(channelID snowflake.ID, cutoff time.Time) error {
	rest := m.bot.Client.Rest()
	var bulk []snowflake.ID
	var single []snowflake.ID

	before := snowflake.ID(0)
	for {
		page, err := rest.GetMessages(channelID, 0, before, 0, 100)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		for _, msg := range page {
			if msg.CreatedAt.Before(cutoff) {
				if m.now().Sub(msg.CreatedAt) < bulkDeleteMaxAge {
					bulk = append(bulk, msg.ID)
				} else {
					single = append(single, msg.ID)
				}
			}
		}
		// pages come newest first
		before = page[len(page)-1].ID
	}

	for len(bulk) > 0 {
		chunk := bulk
		if len(chunk) > 100 {
			chunk = chunk[:100]
		}
		bulk = bulk[len(chunk):]
		if len(chunk) == 1 {
			single = append(single, chunk[0])
			continue
		}
		if err := rest.BulkDeleteMessages(channelID, chunk); err != nil {
			return err
		}
	}
	for _, id := range single {
		if err := rest.DeleteMessage(channelID, id); err != nil {
			return err
		}
	}
	return nil
}
