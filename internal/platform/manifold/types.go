package manifold

import (
	"time"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// APIUser represents a user as returned by the Manifold Markets API.
type APIUser struct {
	ID            string  `json:"id"`
	CreatedTime   int64   `json:"createdTime"`
	Name          string  `json:"name"`
	Username      string  `json:"username"`
	URL           string  `json:"url"`
	AvatarURL     string  `json:"avatarUrl"`
	Balance       float64 `json:"balance"`
	TotalDeposits float64 `json:"totalDeposits"`
	ProfitCached  Profit  `json:"profitCached"`
}

// Profit is the cached profit breakdown attached to a user.
type Profit struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
	AllTime float64 `json:"allTime"`
}

// ToDomainTrader converts an APIUser to a domain.Trader. All-time profit is
// the figure ranking runs on.
func (u *APIUser) ToDomainTrader() domain.Trader {
	return domain.Trader{
		ID:            u.ID,
		Name:          u.Name,
		Username:      u.Username,
		URL:           u.URL,
		Balance:       u.Balance,
		TotalDeposits: u.TotalDeposits,
		Profit:        u.ProfitCached.AllTime,
	}
}

// ToDomainAccount converts an APIUser to a domain.Account. The /me endpoint
// returns the same shape as /users entries.
func (u *APIUser) ToDomainAccount() domain.Account {
	return domain.Account{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Balance:  u.Balance,
		URL:      u.URL,
	}
}

// APIBet represents a bet as returned by the Manifold Markets API.
//
// Outcome, OrderAmount, LimitProb, and IsCancelled are pointers: older
// records and redemption rows omit them, and that absence decides whether a
// bet is usable downstream.
type APIBet struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	ContractID   string   `json:"contractId"`
	CreatedTime  int64    `json:"createdTime"`
	Amount       float64  `json:"amount"`
	Outcome      *string  `json:"outcome"`
	Shares       float64  `json:"shares"`
	ProbBefore   float64  `json:"probBefore"`
	ProbAfter    float64  `json:"probAfter"`
	OrderAmount  *float64 `json:"orderAmount"`
	LimitProb    *float64 `json:"limitProb"`
	IsFilled     *bool    `json:"isFilled"`
	IsCancelled  *bool    `json:"isCancelled"`
	IsRedemption bool     `json:"isRedemption"`
}

// ToDomainBet converts an APIBet to a domain.Bet, preserving field absence.
func (b *APIBet) ToDomainBet() domain.Bet {
	bet := domain.Bet{
		ID:          b.ID,
		UserID:      b.UserID,
		ContractID:  b.ContractID,
		CreatedTime: time.UnixMilli(b.CreatedTime),
		Amount:      b.Amount,
		OrderAmount: b.OrderAmount,
		LimitProb:   b.LimitProb,
		IsCancelled: b.IsCancelled,
	}
	if b.Outcome != nil {
		o := domain.Outcome(*b.Outcome)
		bet.Outcome = &o
	}
	return bet
}

// APIMarket represents a market as returned by GET /market/{id}. Only the
// fields the advisor reads are mapped; bets arrive via a separate request.
type APIMarket struct {
	ID             string  `json:"id"`
	CreatorID      string  `json:"creatorId"`
	Question       string  `json:"question"`
	URL            string  `json:"url"`
	OutcomeType    string  `json:"outcomeType"`
	Probability    float64 `json:"probability"`
	IsResolved     bool    `json:"isResolved"`
	Resolution     string  `json:"resolution"`
	CreatedTime    int64   `json:"createdTime"`
	CloseTime      int64   `json:"closeTime"`
	Volume         float64 `json:"volume"`
	TotalLiquidity float64 `json:"totalLiquidity"`
}

// ToDomainMarket converts an APIMarket and its bets to a domain.Market.
func (m *APIMarket) ToDomainMarket(bets []domain.Bet) domain.Market {
	return domain.Market{
		ID:          m.ID,
		Question:    m.Question,
		URL:         m.URL,
		Probability: m.Probability,
		IsResolved:  m.IsResolved,
		Bets:        bets,
	}
}
