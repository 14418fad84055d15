package neonapi

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const provisionalCitation = `@misc{DPID/provisional,
  doi = {},
  url = {https://data.neonscience.org/data-products/DPID},
  author = {{National Ecological Observatory Network (NEON)}},
  language = {en},
  title = {NAME (DPID)},
  publisher = {National Ecological Observatory Network (NEON)},
  year = {YEAR}
}`

// Citation returns a BibTeX citation for one data product release.
// Released data cites through the DOI Foundation API; provisional data has
// no DOI, so the citation is built from a template.
func (c *Client) Citation(ctx context.Context, dpid, release string) (string, error) {
	if err := ValidateDPID(dpid); err != nil {
		return "", err
	}
	p, err := c.Product(ctx, dpid)
	if err != nil {
		return "", err
	}

	if release == "PROVISIONAL" {
		cit := strings.ReplaceAll(provisionalCitation, "DPID", dpid)
		cit = strings.ReplaceAll(cit, "YEAR", fmt.Sprint(time.Now().Year()))
		return strings.ReplaceAll(cit, "NAME", p.ProductName), nil
	}

	for _, rel := range p.Releases {
		if rel.Release != release {
			continue
		}
		if rel.ProductDoi.URL == "" {
			return "", fmt.Errorf("release %s of %s has no DOI", release, dpid)
		}
		return c.GetText(ctx, rel.ProductDoi.URL, "application/x-bibtex")
	}
	return "", fmt.Errorf("there are no data with dpid=%s and release=%s", dpid, release)
}
