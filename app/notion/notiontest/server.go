// Package notiontest runs an in-memory stand-in for the Notion API.
package notiontest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lysyi3m/feed2notion/app/notion"
)

const (
	OpRetrieveDatabase = "retrieve_database"
	OpQuery            = "query"
	OpCreate           = "create"
	OpUpdate           = "update"
	OpListBlocks       = "list_blocks"
	OpAppendBlocks     = "append_blocks"
	OpDeleteBlock      = "delete_block"
)

// DefaultSchema has every property the sync knows about.
func DefaultSchema() map[string]string {
	return map[string]string{
		"Title":     "title",
		"URL":       "url",
		"Published": "date",
		"Source":    "select",
		"Summary":   "rich_text",
		"Content":   "rich_text",
		"Author":    "rich_text",
		"Tags":      "multi_select",
	}
}

// Page is a page as stored by the server.
type Page struct {
	ID         string
	Properties map[string]json.RawMessage
	Archived   bool
}

type fault struct {
	status  int
	code    string
	message string
	header  http.Header
}

type Server struct {
	*httptest.Server

	Token string

	mu         sync.Mutex
	schema     map[string]string
	pages      []*Page
	blocks     map[string][]notion.Block
	calls      map[string]int
	faults     map[string][]fault
	staleIndex bool
	unindexed  map[string]bool
}

// NewServer starts a server with the given database schema (property name
// to type). A nil schema means DefaultSchema.
func NewServer(schema map[string]string) *Server {
	if schema == nil {
		schema = DefaultSchema()
	}

	s := &Server{
		Token:     "secret_test",
		schema:    schema,
		blocks:    make(map[string][]notion.Block),
		calls:     make(map[string]int),
		faults:    make(map[string][]fault),
		unindexed: make(map[string]bool),
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.authMiddleware())

	v1 := r.Group("/v1")
	{
		v1.GET("/databases/:id", s.track(OpRetrieveDatabase, s.retrieveDatabase))
		v1.POST("/databases/:id/query", s.track(OpQuery, s.queryDatabase))
		v1.POST("/pages", s.track(OpCreate, s.createPage))
		v1.PATCH("/pages/:id", s.track(OpUpdate, s.updatePage))
		v1.GET("/blocks/:id/children", s.track(OpListBlocks, s.listBlocks))
		v1.PATCH("/blocks/:id/children", s.track(OpAppendBlocks, s.appendBlocks))
		v1.DELETE("/blocks/:id", s.track(OpDeleteBlock, s.deleteBlock))
	}

	s.Server = httptest.NewServer(r)
	return s
}

// Fail makes the next call of op answer with the given status and error code.
// Calls queue up: Fail twice to fail two consecutive calls.
func (s *Server) Fail(op string, status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], fault{status: status, code: code, message: message})
}

// RateLimit makes the next call of op answer 429 with a Retry-After header.
func (s *Server) RateLimit(op string, retryAfterSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header := http.Header{}
	header.Set("Retry-After", fmt.Sprint(retryAfterSeconds))
	s.faults[op] = append(s.faults[op], fault{
		status:  http.StatusTooManyRequests,
		code:    "rate_limited",
		message: "You have been rate limited.",
		header:  header,
	})
}

// SetStaleIndex controls whether pages created from now on are hidden from
// queries, the way a lagging search index would behave.
func (s *Server) SetStaleIndex(stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleIndex = stale
	if !stale {
		s.unindexed = make(map[string]bool)
	}
}

// AddPage seeds a page with a URL and title.
func (s *Server) AddPage(url, title string) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := &Page{
		ID: uuid.NewString(),
		Properties: map[string]json.RawMessage{
			"Title": mustJSON(notion.TitleValue(title)),
			"URL":   mustJSON(notion.URLValue(url)),
		},
	}
	s.pages = append(s.pages, page)
	s.blocks[page.ID] = []notion.Block{}
	return page
}

// AddBlock appends a stored block to a page body.
func (s *Server) AddBlock(pageID string, block notion.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[pageID] = append(s.blocks[pageID], withIDs([]notion.Block{block})...)
}

func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Server) Pages() []Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages := make([]Page, 0, len(s.pages))
	for _, page := range s.pages {
		pages = append(pages, *page)
	}
	return pages
}

// PagesByURL returns every page whose URL property equals url.
func (s *Server) PagesByURL(url string) []Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pages []Page
	for _, page := range s.pages {
		if pageURL(page) == url {
			pages = append(pages, *page)
		}
	}
	return pages
}

func (s *Server) Blocks(pageID string) []notion.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notion.Block(nil), s.blocks[pageID]...)
}

// Has reports whether the page carries the property.
func (p Page) Has(name string) bool {
	_, ok := p.Properties[name]
	return ok
}

// Text returns the plain text of a title or rich_text property.
func (p Page) Text(name string) string {
	var value map[string][]notion.RichText
	if err := json.Unmarshal(p.Properties[name], &value); err != nil {
		return ""
	}

	var sb strings.Builder
	for _, key := range []string{"title", "rich_text"} {
		for _, chunk := range value[key] {
			if chunk.Text != nil {
				sb.WriteString(chunk.Text.Content)
			}
		}
	}
	return sb.String()
}

// Select returns the option name of a select property.
func (p Page) Select(name string) string {
	var value struct {
		Select *notion.SelectOption `json:"select"`
	}
	if err := json.Unmarshal(p.Properties[name], &value); err != nil || value.Select == nil {
		return ""
	}
	return value.Select.Name
}

// MultiSelect returns the option names of a multi_select property.
func (p Page) MultiSelect(name string) []string {
	var value struct {
		MultiSelect []notion.SelectOption `json:"multi_select"`
	}
	if err := json.Unmarshal(p.Properties[name], &value); err != nil {
		return nil
	}

	names := make([]string, 0, len(value.MultiSelect))
	for _, option := range value.MultiSelect {
		names = append(names, option.Name)
	}
	return names
}

// Date returns the start of a date property, empty when unset.
func (p Page) Date(name string) string {
	var value struct {
		Date *notion.Date `json:"date"`
	}
	if err := json.Unmarshal(p.Properties[name], &value); err != nil || value.Date == nil {
		return ""
	}
	return value.Date.Start
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+s.Token {
			s.abort(c, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
			return
		}
		if c.GetHeader("Notion-Version") == "" {
			s.abort(c, http.StatusBadRequest, "missing_version", "Notion-Version header failed validation.")
			return
		}
		c.Next()
	}
}

// track counts the call and serves a queued fault instead of the handler
// when one is pending.
func (s *Server) track(op string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.calls[op]++
		var pending *fault
		if queue := s.faults[op]; len(queue) > 0 {
			pending = &queue[0]
			s.faults[op] = queue[1:]
		}
		s.mu.Unlock()

		if pending != nil {
			for key, values := range pending.header {
				for _, value := range values {
					c.Header(key, value)
				}
			}
			s.abort(c, pending.status, pending.code, pending.message)
			return
		}

		handler(c)
	}
}

func (s *Server) abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"object":  "error",
		"status":  status,
		"code":    code,
		"message": message,
	})
}

func (s *Server) retrieveDatabase(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	properties := make(map[string]notion.PropertySchema, len(s.schema))
	for name, kind := range s.schema {
		properties[name] = notion.PropertySchema{ID: name, Name: name, Type: kind}
	}

	c.JSON(http.StatusOK, notion.Database{
		Object:     "database",
		ID:         c.Param("id"),
		Properties: properties,
	})
}

func (s *Server) queryDatabase(c *gin.Context) {
	var req notion.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "validation_error", "body failed validation: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Filter != nil {
		if kind, ok := s.schema[req.Filter.Property]; !ok || kind != "url" {
			s.abort(c, http.StatusBadRequest, "validation_error",
				fmt.Sprintf("Could not find property with name or id: %s", req.Filter.Property))
			return
		}
	}

	results := make([]notion.Page, 0)
	for _, page := range s.pages {
		if page.Archived || s.unindexed[page.ID] {
			continue
		}
		if req.Filter != nil && req.Filter.URL != nil && pageURL(page) != req.Filter.URL.Equals {
			continue
		}
		results = append(results, wirePage(page))
	}

	hasMore := false
	if req.PageSize > 0 && len(results) > req.PageSize {
		results = results[:req.PageSize]
		hasMore = true
	}

	c.JSON(http.StatusOK, notion.QueryResponse{Object: "list", Results: results, HasMore: hasMore})
}

type writePageRequest struct {
	Parent     notion.Parent              `json:"parent"`
	Properties map[string]json.RawMessage `json:"properties"`
	Children   []notion.Block             `json:"children"`
}

func (s *Server) createPage(c *gin.Context) {
	var req writePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "validation_error", "body failed validation: "+err.Error())
		return
	}
	if len(req.Children) > 100 {
		s.abort(c, http.StatusBadRequest, "validation_error", "body.children.length should be ≤ 100")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if message := s.validateProperties(req.Properties); message != "" {
		s.abort(c, http.StatusBadRequest, "validation_error", message)
		return
	}

	page := &Page{ID: uuid.NewString(), Properties: req.Properties}
	s.pages = append(s.pages, page)
	if s.staleIndex {
		s.unindexed[page.ID] = true
	}
	s.blocks[page.ID] = withIDs(req.Children)

	c.JSON(http.StatusOK, wirePage(page))
}

func (s *Server) updatePage(c *gin.Context) {
	var req writePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "validation_error", "body failed validation: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	page := s.findPage(c.Param("id"))
	if page == nil {
		s.abort(c, http.StatusNotFound, "object_not_found", "Could not find page with ID: "+c.Param("id"))
		return
	}
	if message := s.validateProperties(req.Properties); message != "" {
		s.abort(c, http.StatusBadRequest, "validation_error", message)
		return
	}

	for name, value := range req.Properties {
		page.Properties[name] = value
	}

	c.JSON(http.StatusOK, wirePage(page))
}

func (s *Server) listBlocks(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks, ok := s.blocks[c.Param("id")]
	if !ok {
		s.abort(c, http.StatusNotFound, "object_not_found", "Could not find block with ID: "+c.Param("id"))
		return
	}

	c.JSON(http.StatusOK, notion.BlockList{
		Object:  "list",
		Results: append([]notion.Block{}, blocks...),
	})
}

func (s *Server) appendBlocks(c *gin.Context) {
	var req notion.AppendBlockChildrenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "validation_error", "body failed validation: "+err.Error())
		return
	}
	if len(req.Children) > 100 {
		s.abort(c, http.StatusBadRequest, "validation_error", "body.children.length should be ≤ 100")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	if s.findPage(id) == nil {
		s.abort(c, http.StatusNotFound, "object_not_found", "Could not find block with ID: "+id)
		return
	}

	added := withIDs(req.Children)
	s.blocks[id] = append(s.blocks[id], added...)

	c.JSON(http.StatusOK, notion.BlockList{Object: "list", Results: added})
}

func (s *Server) deleteBlock(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	for pageID, blocks := range s.blocks {
		for i, block := range blocks {
			if block.ID != id {
				continue
			}
			s.blocks[pageID] = append(blocks[:i:i], blocks[i+1:]...)
			c.JSON(http.StatusOK, block)
			return
		}
	}

	s.abort(c, http.StatusNotFound, "object_not_found", "Could not find block with ID: "+id)
}

// validateProperties mirrors the checks Notion runs on property payloads.
func (s *Server) validateProperties(properties map[string]json.RawMessage) string {
	for name, raw := range properties {
		kind, ok := s.schema[name]
		if !ok {
			return fmt.Sprintf("%s is not a property that exists.", name)
		}

		var value map[string]json.RawMessage
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Sprintf("%s failed validation: %v", name, err)
		}
		if _, ok := value[kind]; !ok {
			return fmt.Sprintf("%s is expected to be %s.", name, kind)
		}
	}
	return ""
}

func (s *Server) findPage(id string) *Page {
	for _, page := range s.pages {
		if page.ID == id {
			return page
		}
	}
	return nil
}

func pageURL(page *Page) string {
	var value struct {
		URL *string `json:"url"`
	}
	if err := json.Unmarshal(page.Properties["URL"], &value); err != nil || value.URL == nil {
		return ""
	}
	return *value.URL
}

func wirePage(page *Page) notion.Page {
	properties := map[string]notion.PageProperty{}
	if url := pageURL(page); url != "" {
		properties["URL"] = notion.PageProperty{ID: "url", Type: "url", URL: &url}
	}

	return notion.Page{
		Object:     "page",
		ID:         page.ID,
		Archived:   page.Archived,
		Properties: properties,
	}
}

func withIDs(blocks []notion.Block) []notion.Block {
	stored := make([]notion.Block, 0, len(blocks))
	for _, block := range blocks {
		block.ID = uuid.NewString()
		block.Object = "block"
		stored = append(stored, block)
	}
	return stored
}

func mustJSON(value any) json.RawMessage {
	data, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return data
}
