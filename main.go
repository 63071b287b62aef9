package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
	"github.com/go-co-op/gocron/v2"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/commands"
	"github.com/sakkee/eetubotti/botti/database"
	"github.com/sakkee/eetubotti/botti/gate"
	"github.com/sakkee/eetubotti/botti/handlers"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/leveling"
	"github.com/sakkee/eetubotti/botti/logger"
	"github.com/sakkee/eetubotti/botti/modules"
	"github.com/sakkee/eetubotti/botti/modules/actives"
	"github.com/sakkee/eetubotti/botti/modules/birthdays"
	"github.com/sakkee/eetubotti/botti/modules/blacklist"
	"github.com/sakkee/eetubotti/botti/modules/casino"
	"github.com/sakkee/eetubotti/botti/modules/channels"
	"github.com/sakkee/eetubotti/botti/modules/love"
	"github.com/sakkee/eetubotti/botti/modules/moderation"
	"github.com/sakkee/eetubotti/botti/modules/userchannels"
	"github.com/sakkee/eetubotti/botti/registry"
	"github.com/sakkee/eetubotti/botti/rollover"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := botti.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	slog.Info("Starting eetubotti",
		slog.String("version", version),
		slog.String("commit", commit))

	loc, err := cfg.Bot.Location()
	if err != nil {
		slog.Error("Failed to resolve timezone", slog.Any("error", err))
		os.Exit(-1)
	}

	catalog := i18n.Default()
	if cfg.Bot.Localization != "" {
		if catalog, err = i18n.Load(cfg.Bot.Localization); err != nil {
			slog.Error("Failed to load localization", slog.Any("error", err))
			os.Exit(-1)
		}
	}

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err = db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Database ready", slog.Duration("took", time.Since(dbStartTime)))

	b := botti.New(*cfg, version, commit)
	b.DB = db
	b.Store = database.NewStore(db)
	b.Loc = catalog
	b.Location = loc

	b.Registry = registry.New(b.Store)
	if err = b.Registry.Load(ctx); err != nil {
		slog.Error("Failed to load users", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("User registry loaded", slog.Int("users", b.Registry.Count()))

	levelRoles := make([]leveling.LevelRole, 0, len(cfg.Guild.LevelRoles))
	for _, lr := range cfg.Guild.LevelRoles {
		levelRoles = append(levelRoles, leveling.LevelRole{Level: lr.Level, RoleID: lr.Role})
	}
	b.Engine = leveling.NewEngine(leveling.Config{
		GuildID:          cfg.Guild.ID,
		GeneralChannelID: cfg.Guild.GeneralChannel,
		LevelChannelIDs:  cfg.Guild.LevelChannels,
		AFKChannelID:     cfg.Guild.AFKVoiceChannel,
		LevelRoles:       levelRoles,
		IgnoredUserIDs:   cfg.Guild.IgnoreLevelUsers,
		Location:         loc,
	}, b.Registry, b.Store, b.Platform(), catalog)
	b.Engine.SetLaunching(true)

	daylist, err := b.Store.Daylist(ctx)
	if err != nil {
		slog.Error("Failed to load activity days", slog.Any("error", err))
		os.Exit(-1)
	}
	b.Engine.SetDaylist(daylist)

	lastID, err := b.Store.LastMessageID(ctx)
	if err != nil {
		slog.Error("Failed to resolve newest stored message", slog.Any("error", err))
		os.Exit(-1)
	}
	lastSeen := time.Now()
	if lastID != 0 {
		lastSeen = lastID.Time()
	}
	b.Rollover = rollover.New(b.Store, b.Registry, b.Engine, loc, lastSeen)
	b.Rollover.SetLaunching(true)

	b.Gate = gate.New(gate.Config{
		GeneralChannelIDs: cfg.Guild.GeneralChannels(),
		BotChannelID:      cfg.Guild.BotChannel,
		CommandsPerDay:    cfg.Bot.CommandsPerDay,
		MinLevel:          cfg.Bot.MinLevel,
		AdminRoleIDs:      cfg.Guild.AdminRoles,
		BanRoleIDs:        cfg.Guild.BanRoles,
		SquadRoleIDs:      cfg.Guild.SquadRoles,
	}, catalog)

	casinoMod := casino.New(b)
	birthdaysMod := birthdays.New(b)
	loveMod := love.New(b)
	blacklistMod := blacklist.New(b)
	moderationMod := moderation.New(b)
	channelsMod := channels.New(b)
	activesMod := actives.New(b)
	userChannelsMod := userchannels.New(b)
	moderationMod.InUserChannel = userChannelsMod.Has
	b.Dispatcher = modules.NewDispatcher(
		casinoMod, birthdaysMod, loveMod, blacklistMod, moderationMod, channelsMod, activesMod,
		userChannelsMod)

	b.Rollover.Subscribe(func(day clock.Day) {
		b.Gate.ResetDay()
		b.Dispatcher.NewDay(day)
	})

	h := handler.New()
	h.Command("/rank", handlers.WrapWithLogging("rank", commands.RankHandler(b)))
	h.Command("/streak", handlers.WrapWithLogging("streak", commands.StreakHandler(b)))
	h.Command("/top", handlers.WrapWithLogging("top", commands.TopHandler(b)))
	h.Command("/grind", handlers.WrapWithLogging("grind", commands.GrindHandler(b)))
	h.Command("/grindaajat", handlers.WrapWithLogging("grindaajat", commands.GrindersHandler(b)))
	h.Command("/kasino", handlers.WrapWithLogging("kasino", commands.KasinoHandler(b, casinoMod)))
	h.Command("/saldo", handlers.WrapWithLogging("saldo", commands.SaldoHandler(b, casinoMod)))
	h.Command("/saldot", handlers.WrapWithLogging("saldot", commands.SaldotHandler(b, casinoMod)))
	h.Command("/maksuhäiriöt", handlers.WrapWithLogging("maksuhäiriöt", commands.MaksuhairiotHandler(b, casinoMod)))
	h.Command("/give", handlers.WrapWithLogging("give", commands.GiveHandler(b, casinoMod)))
	h.Command("/synttärit", handlers.WrapWithLogging("synttärit", commands.SynttaritHandler(b, birthdaysMod)))
	h.Command("/synttärisankarit", handlers.WrapWithLogging("synttärisankarit", commands.SynttarisankaritHandler(b, birthdaysMod)))
	h.Command("/rakkaus", handlers.WrapWithLogging("rakkaus", commands.RakkausHandler(b, loveMod)))
	h.Command("/ban", handlers.WrapWithLogging("ban", commands.BanHandler(b, moderationMod)))
	h.Command("/kanava", handlers.WrapWithLogging("kanava", commands.KanavaHandler(b, userChannelsMod)))
	h.Command("/kanava_unban", handlers.WrapWithLogging("kanava_unban", commands.KanavaUnbanHandler(b, userChannelsMod)))

	onReady := bot.NewListenerFunc(func(_ *events.Ready) {
		go func() {
			syncCtx, syncCancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer syncCancel()
			if err := b.SyncMessages(syncCtx); err != nil {
				slog.Error("Failed to sync message history", slog.Any("error", err))
			}
			b.Engine.SetLaunching(false)
			b.Rollover.SetLaunching(false)
			b.Dispatcher.Ready()
		}()
	})

	if err = b.SetupBot(h,
		bot.NewListenerFunc(b.OnReady),
		onReady,
		handlers.MessageHandler(b),
		handlers.MessageUpdateHandler(b),
		handlers.ReactionHandler(b),
		handlers.VoiceHandler(b),
		handlers.MemberJoinHandler(b),
		handlers.MemberLeaveHandler(b),
		handlers.MemberUpdateHandler(b),
		handlers.BanHandler(b),
		handlers.UnbanHandler(b),
	); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		b.Client.Close(closeCtx)
	}()

	if *shouldSyncCommands {
		guilds := cfg.Bot.DevGuilds
		if len(guilds) == 0 {
			guilds = []snowflake.ID{cfg.Guild.ID}
		}
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", guilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, guilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err))
		}
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		slog.Error("Failed to create scheduler", slog.Any("error", err))
		os.Exit(-1)
	}
	addJob := func(name string, interval time.Duration, task func()) {
		if _, err := scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(task),
			gocron.WithName(name),
		); err != nil {
			slog.Error("Failed to schedule job",
				slog.String("name", name),
				slog.Any("error", err))
			os.Exit(-1)
		}
	}
	addJob("store-flush", 5*time.Minute, func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer flushCancel()
		if err := b.Engine.FlushNow(flushCtx); err != nil {
			slog.Error("Failed to flush store", slog.Any("error", err))
		}
	})
	addJob("day-rollover", time.Minute, func() {
		tickCtx, tickCancel := context.WithTimeout(context.Background(), time.Minute)
		defer tickCancel()
		b.Rollover.Tick(tickCtx)
	})
	addJob("channel-purge", time.Hour, channelsMod.Purge)
	addJob("userchannel-sweep", time.Hour, userChannelsMod.Sweep)
	addJob("moderation-expiry", time.Minute, func() {
		moderationMod.CheckExpirations(time.Now())
	})
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			slog.Error("Failed to stop scheduler", slog.Any("error", err))
		}
	}()

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s

	slog.Info("Shutting down bot...")
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer flushCancel()
	if err := b.Engine.FlushNow(flushCtx); err != nil {
		slog.Error("Failed to flush store on shutdown", slog.Any("error", err))
	}
}
