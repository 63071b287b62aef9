package botti

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/sakkee/eetubotti/botti/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := defaultConfig()
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	if err = validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Bot: BotConfig{
			Timezone:         "Europe/Helsinki",
			DataDir:          "data",
			CommandsPerDay:   3,
			MinLevel:         10,
			MinChannelLevel:  20,
			ChannelIdleHours: 48,
		},
		DB: database.DBConfig{Path: "data/botti.db"},
	}
}

type Config struct {
	Log   LogConfig         `toml:"log"`
	Bot   BotConfig         `toml:"bot"`
	DB    database.DBConfig `toml:"db"`
	Guild GuildConfig       `toml:"guild"`
}

type BotConfig struct {
	Token          string         `toml:"token" validate:"required"`
	DevGuilds      []snowflake.ID `toml:"dev_guilds"`
	Timezone       string         `toml:"timezone"`
	DataDir        string         `toml:"data_dir"`
	Localization   string         `toml:"localization"`
	CommandsPerDay int            `toml:"commands_per_day" validate:"min=1"`
	MinLevel       int            `toml:"min_level"`

	MinChannelLevel  int `toml:"min_channel_level"`
	ChannelIdleHours int `toml:"channel_idle_hours" validate:"min=1"`
}

type LogConfig struct {
	Level slog.Level `toml:"level"`
}

// GuildConfig wires the bot to its single home guild.
type GuildConfig struct {
	ID snowflake.ID `toml:"id" validate:"required"`

	GeneralChannel  snowflake.ID   `toml:"general_channel" validate:"required"`
	General2Channel snowflake.ID   `toml:"general2_channel"`
	BotChannel      snowflake.ID   `toml:"bot_channel" validate:"required"`
	MediaChannel    snowflake.ID   `toml:"media_channel"`
	CasinoChannel   snowflake.ID   `toml:"casino_channel"`
	AFKVoiceChannel snowflake.ID   `toml:"afk_voice_channel"`
	LevelChannels   []snowflake.ID `toml:"level_channels"`
	PurgeChannels   []snowflake.ID `toml:"purge_channels"`

	AdminRoles      []snowflake.ID `toml:"admin_roles"`
	BanRoles        []snowflake.ID `toml:"ban_roles"`
	SquadRoles      []snowflake.ID `toml:"squad_roles"`
	ActiveRole      snowflake.ID   `toml:"active_role"`
	ActiveSquadRole snowflake.ID   `toml:"active_squad_role"`
	MutedRole       snowflake.ID   `toml:"muted_role"`
	BirthdayRole    snowflake.ID   `toml:"birthday_role"`

	UserChannelCategory snowflake.ID `toml:"user_channel_category"`
	ChannelViewRole     snowflake.ID `toml:"channel_view_role"`
	PreventChannelRole  snowflake.ID `toml:"prevent_channel_role"`

	LevelRoles       []LevelRoleConfig `toml:"level_roles"`
	IgnoreLevelUsers []snowflake.ID    `toml:"ignore_level_users"`
	ProtectedUsers   []snowflake.ID    `toml:"protected_users"`
}

type LevelRoleConfig struct {
	Level int          `toml:"level" validate:"min=0"`
	Role  snowflake.ID `toml:"role" validate:"required"`
}

// Location resolves the configured timezone.
func (c BotConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// GeneralChannels lists the channels treated as general chat by the
// command gate.
func (g GuildConfig) GeneralChannels() []snowflake.ID {
	channels := []snowflake.ID{g.GeneralChannel}
	if g.General2Channel != 0 {
		channels = append(channels, g.General2Channel)
	}
	return channels
}
