package neonapi

import (
	"context"
	"fmt"
)

// DataFile is one downloadable file of a site-month data package.
type DataFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	MD5  string `json:"md5"`
	URL  string `json:"url"`
}

type siteMonthResponse struct {
	Data struct {
		ProductCode string     `json:"productCode"`
		SiteCode    string     `json:"siteCode"`
		Month       string     `json:"month"`
		Release     string     `json:"release"`
		Packages    []struct{} `json:"packages"`
		Files       []DataFile `json:"files"`
	} `json:"data"`
}

// SiteMonthFiles lists the files published for one (product, site, month)
// and the release the month was published under.
func (c *Client) SiteMonthFiles(ctx context.Context, dpid, site, month string) ([]DataFile, string, error) {
	if err := ValidateDPID(dpid); err != nil {
		return nil, "", err
	}
	var resp siteMonthResponse
	url := fmt.Sprintf("%s/data/%s/%s/%s", c.BaseURL, dpid, site, month)
	if err := c.GetJSON(ctx, url, &resp); err != nil {
		return nil, "", err
	}
	return resp.Data.Files, resp.Data.Release, nil
}

// FileSet resolves the remote file URLs for a set of site-months, paired
// with the release-tag lookup the stacking engine needs in cloud mode,
// where the enclosing-folder naming convention does not apply.
func (c *Client) FileSet(ctx context.Context, dpid string, sites, months []string) ([]string, map[string]string, error) {
	var urls []string
	releases := make(map[string]string)
	for _, site := range sites {
		for _, month := range months {
			files, release, err := c.SiteMonthFiles(ctx, dpid, site, month)
			if err != nil {
				return nil, nil, fmt.Errorf("listing %s %s %s: %w", dpid, site, month, err)
			}
			for _, f := range files {
				urls = append(urls, f.URL)
				releases[f.URL] = release
			}
		}
	}
	return urls, releases, nil
}
