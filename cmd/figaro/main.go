package main

import (
	"context"
	"os"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/figaro/pkg/chat/client"
	"github.com/go-go-golems/figaro/pkg/chat/events"
	"github.com/go-go-golems/figaro/pkg/chat/session"
)

var rootCmd = &cobra.Command{
	Use:   "figaro",
	Short: "Terminal client for the streaming documentation chat backend",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return errors.Wrap(err, "invalid log level")
		}
		log.Logger = log.Logger.Level(level)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open an interactive chat session",
	RunE:  runChat,
}

func init() {
	rootCmd.PersistentFlags().String("base-url", "http://localhost:8000", "backend base URL")
	rootCmd.PersistentFlags().String("token", "", "bearer token (or FIGARO_TOKEN)")
	rootCmd.PersistentFlags().String("collection", session.DefaultCollection, "document collection to query")
	rootCmd.PersistentFlags().String("log-level", "warn", "zerolog level")
	rootCmd.PersistentFlags().Bool("verbose", false, "log watermill internals")
	chatCmd.Flags().String("conversation", "", "resume a persisted conversation id")

	viper.SetEnvPrefix("figaro")
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlags(rootCmd.PersistentFlags()))
	cobra.CheckErr(viper.BindPFlags(chatCmd.Flags()))

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	token := viper.GetString("token")
	if token == "" {
		return errors.New("no token configured, set --token or FIGARO_TOKEN")
	}
	tokens := client.StaticToken(token)
	c := client.NewClient(viper.GetString("base-url"), tokens)

	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return errors.Wrap(err, "could not create event router")
	}
	defer func() {
		_ = router.Close()
	}()

	publisher := events.NewPublisherManager()
	publisher.RegisterPublisher("ui", router.Publisher)

	options := []session.Option{
		session.WithCollection(viper.GetString("collection")),
		session.WithPublisherManager(publisher),
	}
	if id := viper.GetString("conversation"); id != "" {
		options = append(options, session.WithConversationID(id))
	}
	s := session.New(c, tokens, options...)
	defer s.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p := tea.NewProgram(
		initialModel(s),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	router.AddHandler("ui", "ui", func(msg *message.Message) error {
		e, err := events.NewEventFromJSON(msg.Payload)
		if err != nil {
			return err
		}
		p.Send(streamMsg{event: e})
		return nil
	})

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		if err := s.RefreshConversations(ctx); err != nil {
			log.Warn().Err(err).Msg("could not load conversation list")
		}
		_, err := p.Run()
		return err
	})

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
