package neonapi

import (
	"context"
	"fmt"
	"regexp"
)

var reDPID = regexp.MustCompile(`^DP[1-4][.][0-9]{5}[.]00[1-2]$`)

// ValidateDPID checks the DP#.#####.00# format of a data product ID.
func ValidateDPID(dpid string) error {
	if !reDPID.MatchString(dpid) {
		return fmt.Errorf("%s is not a properly formatted data product ID; the correct format is DP#.#####.00#", dpid)
	}
	return nil
}

// Product is the portal's description of one data product, trimmed to the
// fields the stacking engine consumes.
type Product struct {
	ProductCode string      `json:"productCode"`
	ProductName string      `json:"productName"`
	Releases    []Release   `json:"releases"`
	ChangeLogs  []ChangeLog `json:"changeLogs"`
}

type Release struct {
	Release        string `json:"release"`
	GenerationDate string `json:"generationDate"`
	ProductDoi     struct {
		URL string `json:"url"`
	} `json:"productDoi"`
}

// ChangeLog is one issue log entry of a data product.
type ChangeLog struct {
	ID               int    `json:"id"`
	ParentIssueID    *int   `json:"parentIssueID"`
	IssueDate        string `json:"issueDate"`
	ResolvedDate     string `json:"resolvedDate"`
	DateRangeStart   string `json:"dateRangeStart"`
	DateRangeEnd     string `json:"dateRangeEnd"`
	LocationAffected string `json:"locationAffected"`
	Issue            string `json:"issue"`
	Resolution       string `json:"resolution"`
}

type productResponse struct {
	Data Product `json:"data"`
}

// Product fetches the portal metadata for one data product.
func (c *Client) Product(ctx context.Context, dpid string) (*Product, error) {
	if err := ValidateDPID(dpid); err != nil {
		return nil, err
	}
	var resp productResponse
	if err := c.GetJSON(ctx, fmt.Sprintf("%s/products/%s", c.BaseURL, dpid), &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
