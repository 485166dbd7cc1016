package httpserver

import (
	"net/http"
	"strings"
	"testing"
)

func TestMCPManifestListsAllTools(t *testing.T) {
	h := newHarness(t, testConfig())
	rec := h.do(t, http.MethodGet, "/ai/v1/mcp/tools", h.readSecret, nil)
	wantStatus(t, rec, http.StatusOK)

	var out struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			InputSchema struct {
				Type       string                 `json:"type"`
				Properties map[string]interface{} `json:"properties"`
			} `json:"input_schema"`
		} `json:"tools"`
	}
	env := decode(t, rec, &out)
	if env.Meta.Protocol != "mcp" {
		t.Fatalf("meta.protocol = %q", env.Meta.Protocol)
	}
	if len(out.Tools) != len(toolDefs) {
		t.Fatalf("manifest lists %d tools, registry has %d", len(out.Tools), len(toolDefs))
	}
	for _, tool := range out.Tools {
		if tool.Name == "" || tool.Description == "" {
			t.Fatalf("tool missing name/description: %+v", tool)
		}
		if tool.InputSchema.Type != "object" {
			t.Fatalf("tool %q schema type = %q", tool.Name, tool.InputSchema.Type)
		}
	}
}

func TestMCPUnknownToolSuggestsManifest(t *testing.T) {
	h := newHarness(t, testConfig())
	rec := h.do(t, http.MethodPost, "/ai/v1/mcp/tools/nonexistent_tool", h.writeSecret, map[string]interface{}{})
	wantStatus(t, rec, http.StatusNotFound)
	env := decode(t, rec, nil)
	if env.Error.Code != "tool_not_found" {
		t.Fatalf("code = %q", env.Error.Code)
	}
	if !strings.Contains(env.Error.Message, "GET /ai/v1/mcp/tools") {
		t.Fatalf("message %q does not reference the manifest endpoint", env.Error.Message)
	}
}

func TestMCPReadToolAllowsReadTier(t *testing.T) {
	h := newHarness(t, testConfig())

	// search_products is a read even though dispatch is a POST.
	rec := h.do(t, http.MethodPost, "/ai/v1/mcp/tools/search_products", h.readSecret, map[string]interface{}{
		"search": "shirt",
	})
	wantStatus(t, rec, http.StatusOK)

	// create_cart is a write and stays off-limits to the read tier.
	rec = h.do(t, http.MethodPost, "/ai/v1/mcp/tools/create_cart", h.readSecret, map[string]interface{}{})
	wantStatus(t, rec, http.StatusForbidden)
}

func TestMCPCartFlow(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.do(t, http.MethodPost, "/ai/v1/mcp/tools/create_cart", h.writeSecret, map[string]interface{}{})
	wantStatus(t, rec, http.StatusOK)
	var view cartView
	decode(t, rec, &view)
	token := view.CartToken
	if token == "" {
		t.Fatal("create_cart returned no token")
	}

	rec = h.do(t, http.MethodPost, "/ai/v1/mcp/tools/add_to_cart", h.writeSecret, map[string]interface{}{
		"cart_token": token, "product_id": 42, "quantity": 2,
	})
	wantStatus(t, rec, http.StatusOK)
	decode(t, rec, &view)
	if len(view.Totals.Items) != 1 || view.Totals.Items[0].Quantity != 2 {
		t.Fatalf("cart after add = %+v", view.Totals.Items)
	}
	key := view.Totals.Items[0].Key

	rec = h.do(t, http.MethodPost, "/ai/v1/mcp/tools/apply_coupon", h.writeSecret, map[string]interface{}{
		"cart_token": token, "code": "SAVE10",
	})
	wantStatus(t, rec, http.StatusOK)

	rec = h.do(t, http.MethodPost, "/ai/v1/mcp/tools/remove_from_cart", h.writeSecret, map[string]interface{}{
		"cart_token": token, "item_key": key,
	})
	wantStatus(t, rec, http.StatusOK)
	decode(t, rec, &view)
	if len(view.Totals.Items) != 0 {
		t.Fatalf("cart after remove = %+v", view.Totals.Items)
	}
}

func TestMCPPlaceOrder(t *testing.T) {
	h := newHarness(t, testConfig())

	var view cartView
	decode(t, h.do(t, http.MethodPost, "/ai/v1/mcp/tools/create_cart", h.writeSecret, map[string]interface{}{}), &view)
	token := view.CartToken

	h.do(t, http.MethodPost, "/ai/v1/mcp/tools/add_to_cart", h.writeSecret, map[string]interface{}{
		"cart_token": token, "product_id": 42,
	})

	// Missing billing address fails with the field named.
	rec := h.do(t, http.MethodPost, "/ai/v1/mcp/tools/place_order", h.writeSecret, map[string]interface{}{
		"cart_token": token, "payment_method": "cod",
	})
	wantStatus(t, rec, http.StatusBadRequest)
	env := decode(t, rec, nil)
	if !strings.Contains(env.Error.Message, "billing_address") {
		t.Fatalf("message %q does not name billing_address", env.Error.Message)
	}

	rec = h.do(t, http.MethodPost, "/ai/v1/mcp/tools/place_order", h.writeSecret, map[string]interface{}{
		"cart_token":      token,
		"payment_method":  "cod",
		"billing_address": map[string]interface{}{"first_name": "Ada", "country": "US"},
	})
	wantStatus(t, rec, http.StatusOK)
	var out struct {
		Order struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"order"`
	}
	decode(t, rec, &out)
	if out.Order.ID == 0 || out.Order.Status != "processing" {
		t.Fatalf("order = %+v", out.Order)
	}

	rec = h.do(t, http.MethodPost, "/ai/v1/mcp/tools/get_order", h.writeSecret, map[string]interface{}{
		"order_id": out.Order.ID,
	})
	wantStatus(t, rec, http.StatusOK)
}

func TestMCPMissingCartTokenNamesField(t *testing.T) {
	h := newHarness(t, testConfig())
	rec := h.do(t, http.MethodPost, "/ai/v1/mcp/tools/get_cart", h.writeSecret, map[string]interface{}{})
	wantStatus(t, rec, http.StatusBadRequest)
	env := decode(t, rec, nil)
	if !strings.Contains(env.Error.Message, "cart_token") {
		t.Fatalf("message %q does not name cart_token", env.Error.Message)
	}
}
