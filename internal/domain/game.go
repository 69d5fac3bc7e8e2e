package domain

import "strconv"

// Rank is one ranking row of a catalog entry ("Board Game Rank: 12").
type Rank struct {
	Label string
	Value string
}

// Game is a catalog entry as returned by the board-game database.
type Game struct {
	ID                 string
	Name               string
	Year               int
	MinPlayers         int
	MaxPlayers         int
	PlayingTimeMinutes int
	Designers          []string
	Mechanics          []string
	RatingAverage      float64
	RatingWeight       float64
	BayesAverage       float64
	RatingMedian       float64
	RatingStdDev       float64
	UsersRated         int
	OwnedCount         int
	Ranks              []Rank
	ImageURL           string
	Description        string
	IsExpansion        bool
}

// NumericID returns the catalog id as an integer, or -1 when the id is not numeric.
func (g *Game) NumericID() int64 {
	if g == nil {
		return -1
	}
	n, err := strconv.ParseInt(g.ID, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// SearchHit is one row of a catalog search listing.
type SearchHit struct {
	ID   string
	Name string
	Year int
	Type string
}
