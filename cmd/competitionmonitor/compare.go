package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/a-h/competitionmonitor/models"
)

type CompareCommand struct {
	ServerFlags `embed:""`
	IDs         []int64 `arg:"" help:"The IDs of the analyses to compare."`
	JSON        bool    `help:"Print the full comparison as JSON." default:"false"`
}

func (c CompareCommand) Run(ctx context.Context) (err error) {
	resp, err := c.Client().ComparePost(ctx, models.CompareRequest{IDs: c.IDs})
	if err != nil {
		return fmt.Errorf("failed to compare: %w", err)
	}
	if c.JSON {
		return writeJSON(os.Stdout, resp, true)
	}
	fmt.Println(rankingTable(resp))
	fmt.Printf("Threat levels: %d high, %d medium, %d low\n", resp.ThreatLevels.High, resp.ThreatLevels.Medium, resp.ThreatLevels.Low)
	fmt.Printf("Market maturity: %s\n", resp.Market.Maturity)
	return nil
}

func rankingTable(resp models.CompareResponse) string {
	t := newTable("#", "ID", "Competitor", "Overall", "Threat")
	for i, r := range resp.Ranking {
		t.Row(
			strconv.Itoa(i+1),
			strconv.FormatInt(r.ID, 10),
			r.Competitor,
			strconv.FormatFloat(r.Overall, 'f', 2, 64),
			string(r.Threat),
		)
	}
	return t.String()
}
