package bgg

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

type valueAttr struct {
	Value string `xml:"value,attr"`
}

type xmlName struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type xmlLink struct {
	Type  string `xml:"type,attr"`
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

type xmlRank struct {
	Name         string `xml:"name,attr"`
	FriendlyName string `xml:"friendlyname,attr"`
	Value        string `xml:"value,attr"`
}

type searchResponse struct {
	Total int          `xml:"total,attr"`
	Items []searchItem `xml:"item"`
}

type searchItem struct {
	Type          string    `xml:"type,attr"`
	ID            string    `xml:"id,attr"`
	Names         []xmlName `xml:"name"`
	YearPublished valueAttr `xml:"yearpublished"`
}

type thingResponse struct {
	Items []thingItem `xml:"item"`
}

type thingItem struct {
	Type          string    `xml:"type,attr"`
	ID            string    `xml:"id,attr"`
	Image         string    `xml:"image"`
	Names         []xmlName `xml:"name"`
	Description   string    `xml:"description"`
	YearPublished valueAttr `xml:"yearpublished"`
	MinPlayers    valueAttr `xml:"minplayers"`
	MaxPlayers    valueAttr `xml:"maxplayers"`
	PlayingTime   valueAttr `xml:"playingtime"`
	Links         []xmlLink `xml:"link"`
	Ratings       struct {
		UsersRated    valueAttr `xml:"usersrated"`
		Average       valueAttr `xml:"average"`
		BayesAverage  valueAttr `xml:"bayesaverage"`
		StdDev        valueAttr `xml:"stddev"`
		Median        valueAttr `xml:"median"`
		Owned         valueAttr `xml:"owned"`
		AverageWeight valueAttr `xml:"averageweight"`
		Ranks         []xmlRank `xml:"ranks>rank"`
	} `xml:"statistics>ratings"`
}

func primaryName(names []xmlName) string {
	for _, n := range names {
		if n.Type == "primary" {
			return html.UnescapeString(n.Value)
		}
	}
	if len(names) > 0 {
		return html.UnescapeString(names[0].Value)
	}
	return ""
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func (it *searchItem) toHit() domain.SearchHit {
	return domain.SearchHit{
		ID:   it.ID,
		Name: primaryName(it.Names),
		Year: atoi(it.YearPublished.Value),
		Type: it.Type,
	}
}

func (it *thingItem) toGame() *domain.Game {
	g := &domain.Game{
		ID:                 it.ID,
		Name:               primaryName(it.Names),
		Year:               atoi(it.YearPublished.Value),
		MinPlayers:         atoi(it.MinPlayers.Value),
		MaxPlayers:         atoi(it.MaxPlayers.Value),
		PlayingTimeMinutes: atoi(it.PlayingTime.Value),
		RatingAverage:      atof(it.Ratings.Average.Value),
		RatingWeight:       atof(it.Ratings.AverageWeight.Value),
		BayesAverage:       atof(it.Ratings.BayesAverage.Value),
		RatingMedian:       atof(it.Ratings.Median.Value),
		RatingStdDev:       atof(it.Ratings.StdDev.Value),
		UsersRated:         atoi(it.Ratings.UsersRated.Value),
		OwnedCount:         atoi(it.Ratings.Owned.Value),
		ImageURL:           strings.TrimSpace(it.Image),
		Description:        cleanDescription(it.Description),
		IsExpansion:        it.Type == "boardgameexpansion",
	}
	for _, l := range it.Links {
		switch l.Type {
		case "boardgamedesigner":
			g.Designers = append(g.Designers, html.UnescapeString(l.Value))
		case "boardgamemechanic":
			g.Mechanics = append(g.Mechanics, html.UnescapeString(l.Value))
		}
	}
	for _, r := range it.Ratings.Ranks {
		label := r.FriendlyName
		if label == "" {
			label = r.Name
		}
		g.Ranks = append(g.Ranks, domain.Rank{Label: label, Value: r.Value})
	}
	return g
}
