// Package shop provides the cosmetic title catalog sold for coins.
package shop

import "coinchat/internal/model"

// NewbieTitle is granted for free to every new account.
const NewbieTitle = "[NEWBIE]"

// TitleConfig holds the catalog definition of a title.
type TitleConfig struct {
	Name        string
	Description string
	Price       int64
}

// catalog lists all titles in display order.
var catalog = []TitleConfig{
	{Name: NewbieTitle, Description: "Granted on sign up", Price: 0},
	{Name: "[CHATTER]", Description: "For those who never stop talking", Price: 150},
	{Name: "[REGULAR]", Description: "A familiar face in the room", Price: 300},
	{Name: "[VETERAN]", Description: "Seen it all", Price: 600},
	{Name: "[PATRON]", Description: "Supporter of the room", Price: 1000},
	{Name: "[LEGEND]", Description: "Top of the board", Price: 2500},
}

// DefaultTitles returns the seed titles with their display order set.
func DefaultTitles() []model.Title {
	titles := make([]model.Title, 0, len(catalog))
	for i, c := range catalog {
		titles = append(titles, model.Title{
			Name:        c.Name,
			Description: c.Description,
			Price:       c.Price,
			SortOrder:   i + 1,
		})
	}
	return titles
}
