package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

// TrackingClient обращается к внешней системе отслеживания заказов магазинов.
// known=false означает, что система ещё не вынесла решение по заказу.
type TrackingClient interface {
	OrderStatus(ctx context.Context, storeID uuid.UUID, orderID string) (status models.TransactionStatus, known bool, err error)
}

type HTTPTrackingClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTrackingClient(baseURL string, client *http.Client) *HTTPTrackingClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTrackingClient{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (c *HTTPTrackingClient) OrderStatus(ctx context.Context, storeID uuid.UUID, orderID string) (models.TransactionStatus, bool, error) {
	u := fmt.Sprintf("%s/api/orders/%s/%s", c.BaseURL, storeID, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("неожиданный статус системы отслеживания: %s", resp.Status)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false, fmt.Errorf("ошибка декодирования ответа системы отслеживания: %w", err)
	}
	switch strings.ToUpper(body.Status) {
	case "CONFIRMED", "PROCESSED", "APPROVED":
		return models.TransactionConfirmed, true, nil
	case "CANCELLED", "CANCELED", "INVALID", "REJECTED":
		return models.TransactionCancelled, true, nil
	}
	return models.TransactionPending, false, nil
}
