// Package notify delivers trading plans and live recommendations to
// Telegram.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Xavi146570/team-specialist-bot/pkg/bot/kelly"
)

var hundred = decimal.NewFromInt(100)

// Telegram sends formatted alerts to one chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram authenticates the bot against the Telegram API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Info().Str("account", bot.Self.UserName).Msg("telegram bot authorized")
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// SendPlan announces a new pre-match trading plan.
func (t *Telegram) SendPlan(plan *kelly.TradingPlan) error {
	return t.send(formatPlanMessage(plan))
}

// SendLive announces a half-time recommendation.
func (t *Telegram) SendLive(plan *kelly.LivePlan) error {
	return t.send(formatLiveMessage(plan))
}

// SendText delivers a plain status message.
func (t *Telegram) SendText(text string) error {
	return t.send(text)
}

// SendDocument uploads a file, used for the weekly PDF report.
func (t *Telegram) SendDocument(path, caption string) error {
	doc := tgbotapi.NewDocument(t.chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	if _, err := t.bot.Send(doc); err != nil {
		return fmt.Errorf("telegram send document: %w", err)
	}
	return nil
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func venueLabel(isHome bool) string {
	if isHome {
		return "Home"
	}
	return "Away"
}

func firedKeys(plan *kelly.TradingPlan) []string {
	keys := make([]string, 0, len(plan.Triggers))
	for _, r := range plan.Triggers {
		if r.Fired {
			keys = append(keys, string(r.Key))
		}
	}
	return keys
}

// formatPlanMessage renders the pre-match alert body. Kept pure for
// testing.
func formatPlanMessage(plan *kelly.TradingPlan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🎯 <b>TRADING PLAN: %s</b>\n", plan.TeamName)
	fmt.Fprintf(&b, "⚽ vs %s (%s)\n", plan.Opponent, venueLabel(plan.IsHome))
	fmt.Fprintf(&b, "🏆 %s\n", plan.Competition)
	fmt.Fprintf(&b, "📅 %s\n\n", plan.Kickoff.Format("02/01/2006 15:04"))

	fmt.Fprintf(&b, "📊 Confidence: %.0f%% | Trigger score: %d/100\n", float64(plan.Confidence)*100, plan.TriggerScore)
	if keys := firedKeys(plan); len(keys) > 0 {
		fmt.Fprintf(&b, "🔥 Triggers: %s\n", strings.Join(keys, ", "))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "📉 Minimums (70/80/90%%): goals %d/%d/%d, team %d/%d/%d\n\n",
		plan.TotalGoalMins.Min70, plan.TotalGoalMins.Min80, plan.TotalGoalMins.Min90,
		plan.TeamGoalMins.Min70, plan.TeamGoalMins.Min80, plan.TeamGoalMins.Min90)

	fmt.Fprintf(&b, "💰 <b>Primary: %s</b>\n", plan.Primary.Market)
	fmt.Fprintf(&b, "   p=%s @ %s → stake %s (%s%% of bankroll)\n",
		plan.Primary.Probability.StringFixed(2), plan.Primary.Odds.StringFixed(2),
		plan.Primary.Stake.StringFixed(2), plan.Primary.Fraction.Mul(hundred).StringFixed(1))
	if plan.Primary.Guaranteed {
		b.WriteString("   ✅ covered by the historical minimum\n")
	}

	for _, bk := range plan.Backups {
		if bk.Fraction.IsZero() {
			continue
		}
		fmt.Fprintf(&b, "↩️ Backup: %s p=%s @ %s → %s%%\n",
			bk.Market, bk.Probability.StringFixed(2), bk.Odds.StringFixed(2),
			bk.Fraction.Mul(hundred).StringFixed(1))
	}

	b.WriteString("\n⏱ <b>Entry phases</b>\n")
	for _, ph := range plan.EntryPhases {
		fmt.Fprintf(&b, "• %s: %s%% (%s)\n", ph.Phase, ph.Fraction.Mul(hundred).StringFixed(1), ph.Timing)
	}

	if plan.StopLoss != "" {
		fmt.Fprintf(&b, "\n🛑 Stop loss: %s | 🎯 Take profit: %s\n", plan.StopLoss, plan.TakeProfit)
	}

	return b.String()
}

// formatLiveMessage renders the half-time alert body. Kept pure for
// testing.
func formatLiveMessage(plan *kelly.LivePlan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔴 <b>LIVE: %s vs %s</b>\n", plan.TeamName, plan.Opponent)
	fmt.Fprintf(&b, "⏱ %d' | Score %s\n", plan.Minute, plan.Score)
	fmt.Fprintf(&b, "🔥 Trigger: %s\n\n", plan.Trigger)

	rec := plan.Recommendation
	fmt.Fprintf(&b, "💰 <b>%s</b>\n", rec.Market)
	fmt.Fprintf(&b, "   p=%s @ %s → stake %s (%s%% of bankroll)\n",
		rec.Probability.StringFixed(2), rec.Odds.StringFixed(2),
		rec.Stake.StringFixed(2), rec.Fraction.Mul(hundred).StringFixed(1))
	fmt.Fprintf(&b, "⏰ %s\n", plan.Timing)

	return b.String()
}
