package neonapi

import (
	"context"
	"fmt"

	"github.com/spatialbytes/neonstack/core"
)

// eddyBundleDPIDs are the sub-products bundled into the eddy covariance
// product; its issue log is the union of theirs.
var eddyBundleDPIDs = []string{
	"DP1.00007.001", "DP1.00010.001", "DP1.00034.001", "DP1.00035.001",
	"DP1.00036.001", "DP1.00037.001", "DP1.00099.001", "DP1.00100.001",
	"DP2.00008.001", "DP2.00009.001", "DP2.00024.001", "DP3.00008.001",
	"DP3.00009.001", "DP3.00010.001", "DP4.00002.001", "DP4.00007.001",
	"DP4.00067.001", "DP4.00137.001", "DP4.00201.001", "DP4.00200.001",
}

var changeLogColumns = []string{
	"id", "parentIssueID", "issueDate", "resolvedDate",
	"dateRangeStart", "dateRangeEnd", "locationAffected", "issue", "resolution",
}

// IssueLog fetches the change log of a data product as a table. The eddy
// covariance bundle is expanded across its sub-products, with an extra dpid
// column identifying each entry's source product.
func (c *Client) IssueLog(ctx context.Context, dpid string) (*core.Table, error) {
	if err := ValidateDPID(dpid); err != nil {
		return nil, err
	}
	if dpid == "DP4.00200.001" {
		return c.eddyIssueLog(ctx)
	}
	logs, err := c.changeLogs(ctx, dpid)
	if err != nil {
		return nil, err
	}
	tab := core.NewTable(changeLogColumns)
	for _, cl := range logs {
		tab.Rows = append(tab.Rows, changeLogRow(cl))
	}
	return tab, nil
}

func (c *Client) eddyIssueLog(ctx context.Context) (*core.Table, error) {
	tab := core.NewTable(append([]string{"dpid"}, changeLogColumns...))
	for _, sub := range eddyBundleDPIDs {
		logs, err := c.changeLogs(ctx, sub)
		if err != nil {
			core.Infof(ctx, "Error in metadata retrieval for %s. Issue log not found.", sub)
			continue
		}
		for _, cl := range logs {
			row := changeLogRow(cl)
			row["dpid"] = sub
			tab.Rows = append(tab.Rows, row)
		}
	}
	return tab, nil
}

func (c *Client) changeLogs(ctx context.Context, dpid string) ([]ChangeLog, error) {
	p, err := c.Product(ctx, dpid)
	if err != nil {
		return nil, fmt.Errorf("metadata retrieval for %s: %w", dpid, err)
	}
	return p.ChangeLogs, nil
}

func changeLogRow(cl ChangeLog) map[string]any {
	row := map[string]any{
		"id":               int64(cl.ID),
		"issueDate":        cl.IssueDate,
		"resolvedDate":     cl.ResolvedDate,
		"dateRangeStart":   cl.DateRangeStart,
		"dateRangeEnd":     cl.DateRangeEnd,
		"locationAffected": cl.LocationAffected,
		"issue":            cl.Issue,
		"resolution":       cl.Resolution,
	}
	if cl.ParentIssueID != nil {
		row["parentIssueID"] = int64(*cl.ParentIssueID)
	}
	return row
}
