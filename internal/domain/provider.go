package domain

import "context"

// MarketDataProvider supplies the four platform reads an advisory run
// needs. The pipeline treats the provider as a sequential, blocking source;
// it never issues concurrent calls.
type MarketDataProvider interface {
	// ListUsers returns every platform user.
	ListUsers(ctx context.Context) ([]Trader, error)

	// ListRecentBets returns the platform's most recent bets, newest first,
	// up to limit.
	ListRecentBets(ctx context.Context, limit int) ([]Bet, error)

	// CurrentAccount returns the operator's own account record.
	CurrentAccount(ctx context.Context) (Account, error)

	// GetMarket returns one market's detail including its full bet list.
	GetMarket(ctx context.Context, id string) (Market, error)
}
