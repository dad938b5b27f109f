// Package tgbot is a read-only spectator bot: it answers /grid and /team and
// never writes to the database.
package tgbot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/antigravity/raceControl/internal/db"
	"github.com/antigravity/raceControl/internal/ledger"
	"github.com/antigravity/raceControl/internal/models"
	"github.com/antigravity/raceControl/internal/roster"
)

// TeamHistoryLimit is how many stints /team lists.
const TeamHistoryLimit = 5

// Telegram rejects longer messages.
const maxMessageLen = 4096

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type App struct {
	api    *tgbotapi.BotAPI
	sender Sender
	roster *roster.Store
	ledger *ledger.Ledger
	log    *zap.Logger
}

func New(token string, conn *sql.DB, log *zap.Logger) (*App, error) {
	b, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	b.Debug = false
	a := NewWithSender(b, conn, log)
	a.api = b
	return a, nil
}

// NewWithSender builds an App that can answer messages but not poll for them.
func NewWithSender(s Sender, conn *sql.DB, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		sender: s,
		roster: roster.New(conn),
		ledger: ledger.New(conn),
		log:    log,
	}
}

// Run long-polls for updates until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.api == nil {
		return errors.New("telegram bot has no api connection")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.api.GetUpdatesChan(u)
	defer a.api.StopReceivingUpdates()

	a.log.Info("telegram bot started", zap.String("username", a.api.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil {
				continue
			}
			if err := a.HandleMessage(ctx, upd.Message); err != nil {
				a.log.Warn("handle telegram message", zap.Int64("chat_id", upd.Message.Chat.ID), zap.Error(err))
			}
		}
	}
}

func (a *App) HandleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.Chat == nil {
		return nil
	}
	chatID := m.Chat.ID

	switch m.Command() {
	case "grid":
		grid, err := a.ledger.SpectateGrid(ctx)
		if err != nil {
			return err
		}
		return a.sendText(chatID, FormatGrid(grid))
	case "team":
		return a.team(ctx, chatID, strings.TrimSpace(m.CommandArguments()))
	case "start", "help":
		return a.sendText(chatID, helpText)
	default:
		return nil
	}
}

const helpText = "Race Control\n/grid - who is driving for every team\n/team <name> - current driver and last stints of one team"

func (a *App) team(ctx context.Context, chatID int64, name string) error {
	if name == "" {
		return a.sendText(chatID, "Usage: /team <team name>")
	}
	id, err := a.roster.TeamIDByName(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		return a.sendText(chatID, fmt.Sprintf("No team called %q.", name))
	}
	if err != nil {
		return err
	}

	team, err := a.roster.TeamByID(ctx, id)
	if err != nil {
		return err
	}
	cur, err := a.ledger.CurrentStint(ctx, id)
	if err != nil {
		return err
	}
	hist, err := a.ledger.History(ctx, id, TeamHistoryLimit)
	if err != nil {
		return err
	}
	return a.sendText(chatID, FormatTeam(team, cur, hist))
}

func (a *App) sendText(chatID int64, text string) error {
	for _, chunk := range split(text, maxMessageLen) {
		if _, err := a.sender.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return err
		}
	}
	return nil
}

// FormatGrid renders the spectate grid with a heading per class.
func FormatGrid(grid []models.GridRow) string {
	if len(grid) == 0 {
		return "No teams registered yet."
	}
	var b strings.Builder
	class := "\x00"
	for _, r := range grid {
		if r.CarClass != class {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			class = r.CarClass
			heading := class
			if heading == "" {
				heading = "No class"
			}
			b.WriteString(heading + "\n")
		}
		fmt.Fprintf(&b, "%s %s: %s\n", carNumber(r.TeamNo), r.TeamName, r.DriverName)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatTeam(team models.Team, cur *models.CurrentStint, hist []models.HistoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)\n", carNumber(team.TeamNo), team.Name, team.CarClass)
	if cur == nil {
		b.WriteString("Driving: " + models.NoDriver + "\n")
	} else {
		fmt.Fprintf(&b, "Driving: %s since %s\n", cur.DriverName, cur.Start.Format(db.TimeLayout))
	}
	if len(hist) == 0 {
		b.WriteString("No stints yet.")
		return b.String()
	}
	b.WriteString("Last stints:\n")
	for _, h := range hist {
		fmt.Fprintf(&b, "%s  %s -> %s\n", h.Driver, h.Start.Format(db.TimeLayout), h.EndLabel(db.TimeLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}

func carNumber(no *int) string {
	if no == nil {
		return "#-"
	}
	return "#" + strconv.Itoa(*no)
}

// split breaks text on line boundaries into pieces of at most limit bytes.
// A single longer line is cut at a rune boundary.
func split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var out []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			n := limit
			for n > 0 && !utf8.RuneStart(line[n]) {
				n--
			}
			out = append(out, line[:n])
			line = line[n:]
		}
		if cur.Len()+len(line) > limit {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
