package models

import (
	"strings"
	"time"
)

// TrelloCard is the subset of the Trello card resource we request.
type TrelloCard struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Due      string   `json:"due"`
	ShortURL string   `json:"shortUrl"`
	Closed   bool     `json:"closed"`
	IDList   string   `json:"idList"`
	IDBoard  string   `json:"idBoard"`
	IDLabels []string `json:"idLabels"`
}

type TrelloLabel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TrelloList struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IDBoard string `json:"idBoard"`
	Closed  bool   `json:"closed"`
}

// ToCard converts the wire form, resolving label ids through labelNames.
// Unknown label ids are dropped.
func (tc TrelloCard) ToCard(labelNames map[string]string) (Card, error) {
	card := Card{
		ID:       tc.ID,
		Name:     tc.Name,
		Closed:   tc.Closed,
		ListID:   tc.IDList,
		BoardID:  tc.IDBoard,
		ShortURL: tc.ShortURL,
	}
	for _, id := range tc.IDLabels {
		if name, ok := labelNames[id]; ok && name != "" {
			card.Labels = append(card.Labels, strings.ToLower(name))
		}
	}
	if tc.Due != "" {
		due, err := time.Parse(time.RFC3339, tc.Due)
		if err != nil {
			return card, err
		}
		due = due.UTC()
		card.Due = &due
	}
	return card, nil
}
