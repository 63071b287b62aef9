// Package modules defines the feature module contract and the
// dispatcher that fans gateway events out to every registered module.
package modules

import (
	"log/slog"
	"runtime/debug"

	"github.com/disgoorg/disgo/events"

	"github.com/sakkee/eetubotti/botti/clock"
)

// Module is one self-contained bot feature. Implementations embed Base
// and override only the hooks they care about.
type Module interface {
	Name() string
	OnReady()
	OnNewDay(day clock.Day)
	OnMessage(e *events.MessageCreate)
	OnMessageUpdate(e *events.MessageUpdate)
	OnReactionAdd(e *events.MessageReactionAdd)
	OnMemberJoin(e *events.GuildMemberJoin)
	OnMemberLeave(e *events.GuildMemberLeave)
	OnMemberUpdate(e *events.GuildMemberUpdate)
	OnMemberBan(e *events.GuildBan)
	OnMemberUnban(e *events.GuildUnban)
	OnVoiceStateUpdate(e *events.GuildVoiceStateUpdate)
}

// Base is a Module with no behavior.
type Base struct{}

func (Base) OnReady()                                         {}
func (Base) OnNewDay(clock.Day)                               {}
func (Base) OnMessage(*events.MessageCreate)                  {}
func (Base) OnMessageUpdate(*events.MessageUpdate)            {}
func (Base) OnReactionAdd(*events.MessageReactionAdd)         {}
func (Base) OnMemberJoin(*events.GuildMemberJoin)             {}
func (Base) OnMemberLeave(*events.GuildMemberLeave)           {}
func (Base) OnMemberUpdate(*events.GuildMemberUpdate)         {}
func (Base) OnMemberBan(*events.GuildBan)                     {}
func (Base) OnMemberUnban(*events.GuildUnban)                 {}
func (Base) OnVoiceStateUpdate(*events.GuildVoiceStateUpdate) {}

// Dispatcher fans one event out to every module. A panicking module is
// logged and skipped so one broken feature cannot take the bot down.
type Dispatcher struct {
	modules []Module
}

func NewDispatcher(mods ...Module) *Dispatcher {
	return &Dispatcher{modules: mods}
}

func (d *Dispatcher) Register(m Module) {
	d.modules = append(d.modules, m)
}

func (d *Dispatcher) Modules() []Module {
	return d.modules
}

func (d *Dispatcher) each(event string, fn func(Module)) {
	for _, m := range d.modules {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Module panicked",
						slog.String("type", "sys"),
						slog.String("module", m.Name()),
						slog.String("event", event),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())))
				}
			}()
			fn(m)
		}()
	}
}

func (d *Dispatcher) Ready() {
	d.each("ready", func(m Module) { m.OnReady() })
}

func (d *Dispatcher) NewDay(day clock.Day) {
	d.each("new_day", func(m Module) { m.OnNewDay(day) })
}

func (d *Dispatcher) Message(e *events.MessageCreate) {
	d.each("message", func(m Module) { m.OnMessage(e) })
}

func (d *Dispatcher) MessageUpdate(e *events.MessageUpdate) {
	d.each("message_update", func(m Module) { m.OnMessageUpdate(e) })
}

func (d *Dispatcher) ReactionAdd(e *events.MessageReactionAdd) {
	d.each("reaction_add", func(m Module) { m.OnReactionAdd(e) })
}

func (d *Dispatcher) MemberJoin(e *events.GuildMemberJoin) {
	d.each("member_join", func(m Module) { m.OnMemberJoin(e) })
}

func (d *Dispatcher) MemberLeave(e *events.GuildMemberLeave) {
	d.each("member_leave", func(m Module) { m.OnMemberLeave(e) })
}

func (d *Dispatcher) MemberUpdate(e *events.GuildMemberUpdate) {
	d.each("member_update", func(m Module) { m.OnMemberUpdate(e) })
}

func (d *Dispatcher) MemberBan(e *events.GuildBan) {
	d.each("member_ban", func(m Module) { m.OnMemberBan(e) })
}

func (d *Dispatcher) MemberUnban(e *events.GuildUnban) {
	d.each("member_unban", func(m Module) { m.OnMemberUnban(e) })
}

func (d *Dispatcher) VoiceStateUpdate(e *events.GuildVoiceStateUpdate) {
	d.each("voice_state_update", func(m Module) { m.OnVoiceStateUpdate(e) })
}
