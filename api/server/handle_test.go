package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fundlock/fundlock/api/pagination"
)

type echoReq struct {
	CampaignID uint64 `json:"campaign_id" binding:"required"`
}

type echoResp struct {
	CampaignID uint64 `json:"campaign_id"`
}

func TestValidateFunc(t *testing.T) {
	testCases := []struct {
		name    string
		fn      handleFunc
		wantErr bool
	}{
		{
			name:    "the interface is not function type",
			fn:      10,
			wantErr: true,
		},
		{
			name:    "the first input parameter of the func isn't gin.Context type",
			fn:      func(i int) {},
			wantErr: true,
		},
		{
			name:    "the second input parameter of the func isn't a pointer type",
			fn:      func(c *gin.Context, i int) {},
			wantErr: true,
		},
		{
			name:    "the third input parameter of the func isn't a pagination type",
			fn:      func(c *gin.Context, req *echoReq, page pagination.Query) {},
			wantErr: true,
		},
		{
			name:    "missing return values",
			fn:      func(c *gin.Context, req *echoReq, page *pagination.Query) {},
			wantErr: true,
		},
		{
			name: "the last return value of the func must be an error type",
			fn: func(c *gin.Context, req *echoReq, page *pagination.Query) int {
				return 0
			},
			wantErr: true,
		},
		{
			name: "the first return value of a paginated func must " +
				"be a pagination.Result type",
			fn: func(c *gin.Context, req *echoReq, page *pagination.Query) (int, error) {
				return 0, nil
			},
			wantErr: true,
		},
		{
			name: "plain handler without response",
			fn: func(c *gin.Context) error {
				return nil
			},
			wantErr: false,
		},
		{
			name: "detail handler returning a response",
			fn: func(c *gin.Context) (*echoResp, error) {
				return nil, nil
			},
			wantErr: false,
		},
		{
			name: "mutation handler binding a request",
			fn: func(c *gin.Context, req *echoReq) error {
				return nil
			},
			wantErr: false,
		},
		{
			name: "mutation handler binding a request and returning a response",
			fn: func(c *gin.Context, req *echoReq) (*echoResp, error) {
				return nil, nil
			},
			wantErr: false,
		},
		{
			name: "paginated list handler",
			fn: func(
				c *gin.Context,
				req *echoReq,
				page *pagination.Query,
			) (*pagination.Result, error) {
				return nil, nil
			},
			wantErr: false,
		},
	}
	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			if err := validateFunc(c.fn); (err != nil) != c.wantErr {
				t.Errorf("validate func return error = %v,"+
					" want error %v", err, c.wantErr)
			}
		})
	}
}

func newDispatchServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{engine: gin.New()}
	s.engine.Use(handleError())
	s.engine.POST("echo", s.handle(
		func(c *gin.Context, req *echoReq) (*echoResp, error) {
			return &echoResp{CampaignID: req.CampaignID}, nil
		},
	))
	return s
}

func TestHandleDispatch(t *testing.T) {
	s := newDispatchServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost,
		"/echo",
		strings.NewReader(`{"campaign_id":7}`),
	)
	req.Header.Set("Content-Type", "application/json")
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}

	resp := struct {
		Code int      `json:"code"`
		Msg  string   `json:"msg"`
		Data echoResp `json:"data"`
	}{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != http.StatusOK || resp.Msg != "success" {
		t.Errorf("got envelope code=%d msg=%q, want success", resp.Code, resp.Msg)
	}
	if resp.Data.CampaignID != 7 {
		t.Errorf("got campaign id %d, want 7", resp.Data.CampaignID)
	}
}

func TestHandleBindFailure(t *testing.T) {
	s := newDispatchServer()

	// Required field missing: the binding error must map to a validation
	// response, never a system error.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	resp := struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != 1001 {
		t.Errorf("got code %d, want validation code 1001", resp.Code)
	}
}
