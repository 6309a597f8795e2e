// Package httpapi is the call boundary the excluded collaborators use: the
// chat layer submits validated wager requests here and the scheduler can
// post event completions.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MarkoPoloResearchLab/wagerbook/internal/metrics"
	"github.com/MarkoPoloResearchLab/wagerbook/internal/settlement"
	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultLedgerPageSize = 50
	defaultScoreboardSize = 10
)

// Config holds the HTTP server settings.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
}

// Server exposes the wager service over HTTP.
type Server struct {
	cfg        Config
	service    *wager.Service
	dispatcher *settlement.Dispatcher
	logger     *zap.Logger
}

// New wires a Server.
func New(cfg Config, service *wager.Service, dispatcher *settlement.Dispatcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, service: service, dispatcher: dispatcher, logger: logger}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.cfg.ListenAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("http api listening", zap.String("addr", server.cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Router builds the gin handler.
func (server *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if len(server.cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     server.cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/accounts", server.handleCreateAccount)
	api.GET("/accounts/:user_id/balance", server.handleBalance)
	api.GET("/accounts/:user_id/wagers", server.handleActiveWagers)
	api.GET("/accounts/:user_id/ledger", server.handleLedger)
	api.GET("/accounts/:user_id/stats", server.handleStats)
	api.GET("/scoreboard", server.handleScoreboard)
	api.POST("/wagers", server.handlePlaceWager)
	api.POST("/wagers/:wager_id/cancel", server.handleCancelWager)
	api.POST("/events/:event_id/completed", server.handleEventCompleted)

	return router
}

type createAccountRequest struct {
	UserID               string `json:"user_id"`
	StartingBalanceCents int64  `json:"starting_balance_cents"`
}

func (server *Server) handleCreateAccount(ctx *gin.Context) {
	var body createAccountRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	userID, err := wager.NewUserID(body.UserID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	starting, err := wager.NewAmountCents(body.StartingBalanceCents)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	account, err := server.service.CreateAccount(ctx.Request.Context(), userID, starting)
	if err != nil {
		server.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"user_id":       account.UserID.String(),
		"balance_cents": account.BalanceCents.Int64(),
	})
}

func (server *Server) handleBalance(ctx *gin.Context) {
	userID, err := wager.NewUserID(ctx.Param("user_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	balance, err := server.service.Balance(ctx.Request.Context(), userID)
	if err != nil {
		server.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"user_id":       userID.String(),
		"balance_cents": balance.Int64(),
	})
}

type placeWagerRequest struct {
	UserID     string `json:"user_id"`
	EventID    string `json:"event_id"`
	Selection  string `json:"selection"`
	StakeCents int64  `json:"stake_cents"`
	Metadata   string `json:"metadata"`
}

func (server *Server) handlePlaceWager(ctx *gin.Context) {
	var body placeWagerRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	request, err := buildPlaceRequest(body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	placed, err := server.service.PlaceWager(ctx.Request.Context(), request)
	if err != nil {
		server.renderError(ctx, err)
		return
	}
	metrics.WagersPlaced.Inc()
	ctx.JSON(http.StatusCreated, wagerResponse(placed))
}

type cancelWagerRequest struct {
	UserID string `json:"user_id"`
}

func (server *Server) handleCancelWager(ctx *gin.Context) {
	var body cancelWagerRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	userID, err := wager.NewUserID(body.UserID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	wagerID, err := wager.NewWagerID(ctx.Param("wager_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	cancelled, err := server.service.CancelWager(ctx.Request.Context(), userID, wagerID)
	if err != nil {
		server.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, wagerResponse(cancelled))
}

func (server *Server) handleActiveWagers(ctx *gin.Context) {
	userID, err := wager.NewUserID(ctx.Param("user_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	records, err := server.service.ActiveWagers(ctx.Request.Context(), userID)
	if err != nil {
		server.renderError(ctx, err)
		return
	}
	wagers := make([]gin.H, 0, len(records))
	for _, record := range records {
		wagers = append(wagers, wagerResponse(record))
	}
	ctx.JSON(http.StatusOK, gin.H{"wagers": wagers})
}

func (server *Server) handleLedger(ctx *gin.Context) {
	userID, err := wager.NewUserID(ctx.Param("user_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	before, _ := strconv.ParseInt(ctx.DefaultQuery("before", "0"), 10, 64)
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultLedgerPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultLedgerPageSize
	}
	entries, err := server.service.ListLedgerEntries(ctx.Request.Context(), userID, before, limit)
	if err != nil {
		server.renderError(ctx, err)
		return
	}
	rendered := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		row := gin.H{
			"entry_id":    entry.EntryID,
			"delta_cents": entry.DeltaCents,
			"reason":      entry.Reason.String(),
			"created_at":  entry.CreatedUnixUTC,
		}
		if entry.WagerID != nil {
			row["wager_id"] = entry.WagerID.String()
		}
		rendered = append(rendered, row)
	}
	ctx.JSON(http.StatusOK, gin.H{"entries": rendered})
}

func (server *Server) handleStats(ctx *gin.Context) {
	userID, err := wager.NewUserID(ctx.Param("user_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	stats, err := server.service.UserStats(ctx.Request.Context(), userID)
	if err != nil {
		server.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"total_wagers":       stats.TotalWagers,
		"total_won":          stats.TotalWon,
		"total_lost":         stats.TotalLost,
		"total_pushed":       stats.TotalPushed,
		"total_cancelled":    stats.TotalCancelled,
		"active_wagers":      stats.ActiveWagers,
		"total_staked_cents": stats.TotalStakedCents,
		"total_profit_cents": stats.TotalProfitCents,
		"biggest_win_cents":  stats.BiggestWinCents,
		"biggest_loss_cents": stats.BiggestLossCents,
		"win_rate":           stats.WinRate(),
	})
}

func (server *Server) handleScoreboard(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultScoreboardSize)))
	if err != nil || limit <= 0 {
		limit = defaultScoreboardSize
	}
	entries, err := server.service.Scoreboard(ctx.Request.Context(), limit)
	if err != nil {
		server.renderError(ctx, err)
		return
	}
	rendered := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		rendered = append(rendered, gin.H{
			"rank":               entry.Rank,
			"user_id":            entry.UserID.String(),
			"balance_cents":      entry.BalanceCents.Int64(),
			"active_wager_count": entry.ActiveWagerCount,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"scoreboard": rendered})
}

type eventCompletedRequest struct {
	Outcome string `json:"outcome"`
}

func (server *Server) handleEventCompleted(ctx *gin.Context) {
	var body eventCompletedRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	eventID, err := wager.NewEventID(ctx.Param("event_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	outcome, err := wager.ParseOutcome(body.Outcome)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	if err := server.dispatcher.OnEventCompleted(ctx.Request.Context(), eventID, outcome); err != nil {
		server.renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"event_id": eventID.String(), "outcome": outcome.String()})
}

func (server *Server) renderError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, wager.ErrInsufficientFunds):
		ctx.JSON(http.StatusUnprocessableEntity, errorResponse("insufficient_funds", err.Error()))
	case errors.Is(err, wager.ErrDuplicateWager):
		ctx.JSON(http.StatusConflict, errorResponse("duplicate_wager", err.Error()))
	case errors.Is(err, wager.ErrAccountExists):
		ctx.JSON(http.StatusConflict, errorResponse("account_exists", err.Error()))
	case errors.Is(err, wager.ErrAccountNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse("account_not_found", err.Error()))
	case errors.Is(err, wager.ErrWagerNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse("wager_not_found", err.Error()))
	case errors.Is(err, wager.ErrNotOwner):
		ctx.JSON(http.StatusForbidden, errorResponse("not_owner", err.Error()))
	case errors.Is(err, wager.ErrUnknownEvent), errors.Is(err, wager.ErrUnknownSelection):
		ctx.JSON(http.StatusBadRequest, errorResponse("unknown_event", err.Error()))
	default:
		server.logger.Error("internal error", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal", "internal error"))
	}
}

func buildPlaceRequest(body placeWagerRequest) (wager.PlaceWagerRequest, error) {
	userID, err := wager.NewUserID(body.UserID)
	if err != nil {
		return wager.PlaceWagerRequest{}, err
	}
	eventID, err := wager.NewEventID(body.EventID)
	if err != nil {
		return wager.PlaceWagerRequest{}, err
	}
	selection, err := wager.NewSelection(body.Selection)
	if err != nil {
		return wager.PlaceWagerRequest{}, err
	}
	stake, err := wager.NewStakeCents(body.StakeCents)
	if err != nil {
		return wager.PlaceWagerRequest{}, err
	}
	metadata, err := wager.NewMetadataJSON(body.Metadata)
	if err != nil {
		return wager.PlaceWagerRequest{}, err
	}
	return wager.PlaceWagerRequest{
		UserID:    userID,
		EventID:   eventID,
		Selection: selection,
		Stake:     stake,
		Metadata:  metadata,
	}, nil
}

func wagerResponse(record wager.Wager) gin.H {
	response := gin.H{
		"wager_id":           record.WagerID.String(),
		"user_id":            record.UserID.String(),
		"event_id":           record.EventID.String(),
		"selection":          record.Selection.String(),
		"stake_cents":        record.StakeCents.Int64(),
		"price_at_placement": record.PriceAtPlacement.Int64(),
		"state":              record.State.String(),
		"placed_at":          record.PlacedUnixUTC,
	}
	if record.State.Terminal() {
		response["profit_cents"] = record.ProfitCents.Int64()
		response["payout_cents"] = record.PayoutCents.Int64()
		response["settled_at"] = record.SettledUnixUTC
	}
	return response
}

func errorResponse(code string, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}
