package search

import (
	"bytes"
	"context"
	"encoding/json"

	"example.com/warehouse/config"
	"example.com/warehouse/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Fulfillment indices. The configured prefix is prepended on every request.
const (
	ReceiptsIndex  = "receipts"
	ShipmentsIndex = "shipments"
)

// ElasticClient indexes finalized receipts and shipments so the back
// office can search fulfillment history without touching the database.
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexReceipt indexes an approved purchase receipt
func (c *ElasticClient) IndexReceipt(ctx context.Context, purchase *models.Purchase) error {
	log.Info().Str("purchase_id", purchase.ID.String()).Msg("indexing receipt")

	lines := make([]map[string]interface{}, 0, len(purchase.Items))
	for _, item := range purchase.Items {
		line := map[string]interface{}{
			"product_id":        item.ProductID.String(),
			"quantity_ordered":  item.QuantityOrdered,
			"quantity_received": item.QuantityReceived,
		}
		if item.Product.SKU != "" {
			line["sku"] = item.Product.SKU
			line["product_name"] = item.Product.Name
		}
		lines = append(lines, line)
	}

	doc := map[string]interface{}{
		"id":            purchase.ID.String(),
		"po_number":     purchase.PoNumber,
		"supplier_id":   purchase.SupplierID.String(),
		"order_date":    purchase.OrderDate,
		"received_date": purchase.ReceivedDate,
		"status":        purchase.Status,
		"lines":         lines,
	}
	if purchase.Supplier.Name != "" {
		doc["supplier_name"] = purchase.Supplier.Name
	}

	return c.index(ctx, ReceiptsIndex, purchase.ID.String(), doc)
}

// IndexShipment indexes an approved order shipment
func (c *ElasticClient) IndexShipment(ctx context.Context, order *models.Order) error {
	log.Info().Str("order_id", order.ID.String()).Msg("indexing shipment")

	lines := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		line := map[string]interface{}{
			"product_id":       item.ProductID.String(),
			"quantity_ordered": item.QuantityOrdered,
			"quantity_sent":    item.QuantitySent,
		}
		if item.Product.SKU != "" {
			line["sku"] = item.Product.SKU
			line["product_name"] = item.Product.Name
		}
		lines = append(lines, line)
	}

	doc := map[string]interface{}{
		"id":            order.ID.String(),
		"customer_name": order.CustomerName,
		"order_date":    order.OrderDate,
		"shipped_date":  order.ShippedDate,
		"status":        order.Status,
		"lines":         lines,
	}

	return c.index(ctx, ShipmentsIndex, order.ID.String(), doc)
}

func (c *ElasticClient) index(ctx context.Context, index, docID string, doc map[string]interface{}) error {
	docJson, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document")
	}

	req := esapi.IndexRequest{
		Index:      config.FormatIndex(c.config, index),
		DocumentID: docID,
		Body:       bytes.NewReader(docJson),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	return nil
}

// Search runs a raw query against one of the fulfillment indices and
// returns the matching documents.
func (c *ElasticClient) Search(ctx context.Context, index string, query map[string]interface{}) ([]map[string]interface{}, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{config.FormatIndex(c.config, index)},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search result format")
	}

	hitsArray, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, errors.New("unexpected hits format")
	}

	var docs []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}

		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}

		docs = append(docs, source)
	}

	return docs, nil
}
