package handlers

import (
	"net/http"

	"example.com/warehouse/internal/search"

	"github.com/gin-gonic/gin"
)

// SearchHandler exposes full-text search over finalized receipts and
// shipments. When Elasticsearch is not configured the endpoints report
// the feature as unavailable instead of failing requests.
type SearchHandler struct {
	esClient *search.ElasticClient
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(esClient *search.ElasticClient) *SearchHandler {
	return &SearchHandler{esClient: esClient}
}

// SearchReceipts searches the approved purchase receipts
func (h *SearchHandler) SearchReceipts(c *gin.Context) {
	h.search(c, search.ReceiptsIndex)
}

// SearchShipments searches the approved order shipments
func (h *SearchHandler) SearchShipments(c *gin.Context) {
	h.search(c, search.ShipmentsIndex)
}

func (h *SearchHandler) search(c *gin.Context, index string) {
	if h.esClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query": q,
			},
		},
	}

	docs, err := h.esClient.Search(c.Request.Context(), index, query)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": docs, "count": len(docs)})
}

// RegisterRoutes registers the search routes
func (h *SearchHandler) RegisterRoutes(group *gin.RouterGroup) {
	sr := group.Group("/search")
	{
		sr.GET("/receipts", h.SearchReceipts)
		sr.GET("/shipments", h.SearchShipments)
	}
}
