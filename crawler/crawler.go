// Package crawler discovers the source catalog's category forest,
// samples paginated listings under a page-budget constraint, and turns
// listing entries plus their detail pages into normalized product
// records. Crawling is fully sequential and blocking; any transport
// error or non-success status aborts the whole crawl.
package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/gosimple/slug"
	"github.com/mzurek/go-catalog-sync/config"
	"github.com/mzurek/go-catalog-sync/models"
	"github.com/mzurek/go-catalog-sync/pipeline"
)

const (
	categoriesPath  = "webapi/front/pl_PL/categories/tree"
	shippingPathFmt = "webapi/front/pl_PL/shipping/costs/%s/%s"
	listingPathFmt  = "pl/c/%s/%d/%d"

	listingTileSelector = "div.product-item"
	paginatorSelector   = ".paginator a"
	detailSelector      = "div#box_productfull"
)

// Crawler wraps three synchronous colly collectors: one for listing and
// detail pages, one for pagination-discovery probes, and one for the
// source's JSON endpoints.
type Crawler struct {
	cfg     *config.Config
	baseURL *url.URL
	html    *colly.Collector
	probe   *colly.Collector
	api     *colly.Collector
	Metrics *Metrics

	pipe *pipeline.Pipeline

	// density is measured once, the first time a leaf reveals more
	// than one page, and reused for every subsequent leaf.
	density   int
	lastPages int
	lastTiles int

	herr error
}

// New builds a crawler configured from cfg.
func New(cfg *config.Config) (*Crawler, error) {
	parsed, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("source url must include a host")
	}

	base := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	base.SetRequestTimeout(cfg.Timeout)
	base.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	c := &Crawler{
		cfg:     cfg,
		baseURL: parsed,
		html:    base,
		probe:   base.Clone(),
		api:     base.Clone(),
		Metrics: NewMetrics(),
	}

	c.instrument(c.html, "sample")
	c.instrument(c.probe, "discover")
	c.instrument(c.api, "api")

	c.api.OnResponse(func(r *colly.Response) {
		dst := r.Ctx.GetAny("dst")
		if dst == nil {
			return
		}
		if err := json.Unmarshal(r.Body, dst); err != nil {
			c.fail(fmt.Errorf("decode %s: %w", r.Request.URL, err))
		}
	})
	c.probe.OnResponse(c.onProbeResponse)
	c.configureSampling()

	return c, nil
}

func (c *Crawler) instrument(col *colly.Collector, phase string) {
	col.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		c.Metrics.IncRequest(phase)
	})
	col.OnResponse(func(r *colly.Response) {
		if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
			c.Metrics.ObserveDuration(time.Since(start))
		}
	})
	col.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		c.Metrics.IncError(errorLabel(err, statusCode))
	})
}

// FetchTree retrieves the root category forest from the source's JSON
// tree endpoint.
func (c *Crawler) FetchTree(ctx context.Context) ([]*models.CategoryNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	treeURL := c.endpoint(categoriesPath)

	var forest []*models.CategoryNode
	if err := c.fetchJSON(treeURL, &forest); err != nil {
		return nil, &CrawlError{Stage: "tree", URL: treeURL, Err: err}
	}
	if len(forest) == 0 {
		return nil, &CrawlError{Stage: "tree", URL: treeURL, Err: errors.New("empty category tree")}
	}
	slog.Info("fetched category tree",
		slog.Int("top_level", len(forest)),
		slog.Int("total", models.CountNodes(forest)),
	)
	return forest, nil
}

// DiscoverPagination walks the forest and fills NumberOfPages for every
// leaf. A leaf's page-1 listing is probed for a paging control; absence
// means exactly one page. The first leaf revealing more than one page
// also fixes the process-wide page density.
func (c *Crawler) DiscoverPagination(ctx context.Context, nodes []*models.CategoryNode) error {
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !node.IsLeaf() {
			if err := c.DiscoverPagination(ctx, node.Children); err != nil {
				return err
			}
			continue
		}

		pageURL := c.listingURL(node, 1)
		if err := c.probe.Request(http.MethodGet, pageURL, nil, colly.NewContext(), nil); err != nil {
			return &CrawlError{Stage: "pagination", URL: pageURL, Err: err}
		}
		if err := c.takeErr(); err != nil {
			return &CrawlError{Stage: "pagination", URL: pageURL, Err: err}
		}

		pages := c.lastPages
		if pages < 1 {
			pages = 1
		}
		node.NumberOfPages = pages
		c.Metrics.AddPages(pages)

		if pages > 1 && c.density == 0 && c.lastTiles > 0 {
			c.density = c.lastTiles
			c.Metrics.SetDensity(c.density)
			slog.Debug("page density measured",
				slog.Int("density", c.density),
				slog.String("category", node.Name),
			)
		}
	}
	return nil
}

// Density returns the measured page density, or 0 when no leaf has
// revealed a full page yet.
func (c *Crawler) Density() int {
	return c.density
}

// RebalanceTree applies the page-budget algorithm to the forest's
// leaves using the measured density. Residual debt is reported through
// the return value and a log line, never as an error.
func (c *Crawler) RebalanceTree(forest []*models.CategoryNode, nProducts int) (estimated, residualDebt int, err error) {
	density := c.density
	if density == 0 {
		density = c.lastTiles
	}
	if density == 0 {
		return 0, 0, fmt.Errorf("page density unknown: no listing page has been probed")
	}

	leaves := models.Leaves(forest)
	estimated, residualDebt = Rebalance(leaves, nProducts, density)
	if residualDebt > 0 {
		slog.Warn("sample target unreachable with discovered pages",
			slog.Int("target", nProducts),
			slog.Int("estimated", estimated),
			slog.Int("residual_debt", residualDebt),
		)
	}
	return estimated, residualDebt, nil
}

// SampleProducts visits every granted listing page of every leaf and
// streams the extracted records through the pipeline.
func (c *Crawler) SampleProducts(ctx context.Context, forest []*models.CategoryNode, p *pipeline.Pipeline) error {
	c.pipe = p
	for _, leaf := range models.Leaves(forest) {
		for page := 1; page <= leaf.NumberOfPages; page++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			pageURL := c.listingURL(leaf, page)
			cctx := colly.NewContext()
			cctx.Put("node", leaf)
			if err := c.html.Request(http.MethodGet, pageURL, nil, cctx, nil); err != nil {
				return &CrawlError{Stage: "listing", URL: pageURL, Err: err}
			}
			if err := c.takeErr(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Crawler) configureSampling() {
	c.html.OnHTML(listingTileSelector, func(e *colly.HTMLElement) {
		node, _ := e.Request.Ctx.GetAny("node").(*models.CategoryNode)
		if node == nil {
			return
		}
		entry, ok := extractListingEntry(e)
		if !ok {
			// Catalogs contain incomplete listings; skipping is routine.
			slog.Warn("listing entry missing id or name, skipping",
				slog.String("url", e.Request.URL.String()),
			)
			return
		}
		e.Request.Ctx.Put("entry", entry)
		if err := e.Request.Visit(entry.DetailURL); err != nil {
			c.fail(&CrawlError{Stage: "detail", URL: entry.DetailURL, Err: err})
		}
	})

	c.html.OnHTML(detailSelector, func(e *colly.HTMLElement) {
		node, _ := e.Request.Ctx.GetAny("node").(*models.CategoryNode)
		entry, _ := e.Request.Ctx.GetAny("entry").(listingEntry)
		if node == nil || entry.ID == "" {
			return
		}

		record := buildRecord(node, entry, e)

		if stockID := e.Attr("data-stock-id"); stockID != "" {
			shippingURL := c.endpoint(fmt.Sprintf(shippingPathFmt, stockID, url.PathEscape(entry.Price)))
			var info models.ShippingInfo
			if err := c.fetchJSON(shippingURL, &info); err != nil {
				c.fail(&CrawlError{Stage: "shipping", URL: shippingURL, Err: err})
				return
			}
			resolveCarrierNames(&info)
			record.Shipping = info
		}

		node.Products = append(node.Products, record)
		c.Metrics.IncRecords()

		if c.pipe != nil {
			if err := c.pipe.Process(record); err != nil && !errors.Is(err, pipeline.ErrPipelineClosed) {
				slog.Error("pipeline process error", slog.Any("error", err))
			}
		}
	})
}

func (c *Crawler) onProbeResponse(r *colly.Response) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		c.fail(fmt.Errorf("parse listing %s: %w", r.Request.URL, err))
		return
	}
	c.lastPages = maxPageNumber(doc)
	c.lastTiles = doc.Find(listingTileSelector).Length()
}

// maxPageNumber extracts the largest trailing page number from the
// paging control. No control means exactly one page.
func maxPageNumber(doc *goquery.Document) int {
	max := 1
	doc.Find(paginatorSelector).Each(func(_ int, s *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(s.Text()))
		if err == nil && n > max {
			max = n
		}
	})
	return max
}

func (c *Crawler) fetchJSON(rawURL string, dst any) error {
	cctx := colly.NewContext()
	cctx.Put("dst", dst)
	if err := c.api.Request(http.MethodGet, rawURL, nil, cctx, nil); err != nil {
		return err
	}
	return c.takeErr()
}

func (c *Crawler) endpoint(path string) string {
	return strings.TrimRight(c.baseURL.String(), "/") + "/" + path
}

func (c *Crawler) listingURL(node *models.CategoryNode, page int) string {
	return c.endpoint(fmt.Sprintf(listingPathFmt, slug.Make(node.Name), node.ID, page))
}

// fail records the first error raised inside a collector handler, where
// no error can be returned directly. Crawling is sequential, so a plain
// field is enough.
func (c *Crawler) fail(err error) {
	if c.herr == nil {
		c.herr = err
	}
}

func (c *Crawler) takeErr() error {
	err := c.herr
	c.herr = nil
	return err
}
