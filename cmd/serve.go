package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"sdragent/agents"
	"sdragent/config"
	"sdragent/controllers"
	"sdragent/crm"
	"sdragent/db"
	"sdragent/logger"
	"sdragent/prompts"
	"sdragent/router"
	"sdragent/store"
	"sdragent/tools"
	"sdragent/workers"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the follow-up scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	loc, err := time.LoadLocation(cfg.FollowUp.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", cfg.FollowUp.Timezone, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	/**** MARK: STORAGE ****/
	st, err := store.Connect(ctx, cfg.Redis.URL, log, cfg.DebounceWindow(), cfg.BlockTTL())
	if err != nil {
		return err
	}
	defer st.Close()

	database, err := db.Connect(cfg, log)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}
	crmClient := crm.New(database, log)

	/**** MARK: CLIENTS ****/
	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY não configurada: respostas vão usar o texto de fallback")
	}
	llm := tools.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	evolution := tools.NewEvolutionClient(cfg.Evolution.URL, cfg.Evolution.APIKey, cfg.Evolution.Instance)
	gateways := func(serverURL, apiKey, instance string) workers.Gateway {
		return evolution.WithCredentials(serverURL, apiKey, instance)
	}

	var tts workers.Synthesizer
	if cfg.ElevenLabs.APIKey != "" && cfg.ElevenLabs.VoiceID != "" {
		tts = tools.NewElevenLabsClient(cfg.ElevenLabs.APIKey, cfg.ElevenLabs.VoiceID, cfg.ElevenLabs.Model)
	} else {
		log.Warn("ElevenLabs não configurado: respostas em áudio viram texto")
	}

	var sheets workers.SheetAppender
	if cfg.Sheets.DocumentID != "" {
		sc, err := tools.NewSheetsClient(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.DocumentID)
		if err != nil {
			log.Warn("Google Sheets indisponível", "err", err)
		} else {
			sheets = sc
		}
	}

	/**** MARK: AGENTS & WORKERS ****/
	persona := prompts.Persona{Name: cfg.Bot.Name, Company: cfg.Bot.Company, Seller: cfg.Bot.Seller}
	sdr := agents.NewSDRAgent(cfg.AgentFramework, persona, llm, st, crmClient, log)
	log.Info("agente SDR configurado", "framework", sdr.Framework(), "model", llm.Model())

	delayMin, delayMax := cfg.MessageDelays()
	deliverer := workers.NewDeliverer(st, tts, delayMin, delayMax, log)
	scheduler := workers.NewFollowUpScheduler(st, evolution, deliverer, llm, persona, loc, cfg.PollInterval(), log)
	conversation := workers.NewConversation(st, crmClient, sdr, scheduler, deliverer, gateways, sheets, log)
	consolidator := workers.NewConsolidator(st, cfg.DebounceWindow(), conversation.HandleTurn, conversation.Respond, log)
	processor := workers.NewMessageProcessor(st, gateways, llm, consolidator, log)

	/**** MARK: HTTP ****/
	if cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	router.Initialize(engine, cfg, &controllers.Services{
		Log:        log,
		Store:      st,
		CRM:        crmClient,
		Processor:  processor,
		Leads:      conversation,
		Summarizer: sdr,
		FollowUps:  scheduler,
		Sheets:     sheets != nil,
	}, database)

	srv := &http.Server{
		Addr:              ":" + cfg.ApiPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("servidor iniciado", "port", cfg.ApiPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("desligando...")
	case serveErr = <-errCh:
		log.Error("servidor HTTP falhou", "err", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("erro no shutdown HTTP", "err", err)
	}

	scheduler.Stop()
	consolidator.Stop()
	conversation.Wait()
	log.Info("servidor parado")
	return serveErr
}
