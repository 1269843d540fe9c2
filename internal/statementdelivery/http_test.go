package statementdelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation(AmountTag, ValidAmount); err != nil {
			fmt.Fprintf(os.Stderr, "RegisterValidation(%q) returned error: %v\n", AmountTag, err)
			os.Exit(1)
		}
	}

	os.Exit(m.Run())
}

var cmpStatement = []cmp.Option{
	cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) }),
	cmpopts.EquateApproxTime(time.Second),
}

type decimalMatcher struct{ want decimal.Decimal }

func (m decimalMatcher) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalMatcher) String() string { return "is equal to " + m.want.String() }

func eqAmount(d decimal.Decimal) gomock.Matcher { return decimalMatcher{d} }

func randomStatement(userID string, opType domain.OperationType, amount decimal.Decimal) domain.Statement {
	now := time.Now().UTC().Truncate(time.Second)

	return domain.Statement{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        opType,
		Amount:      amount,
		Description: randompkg.Description(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newTokenMaker(t *testing.T) tokenpkg.Maker {
	t.Helper()

	tokenSymmetricKey := randompkg.String(32)

	tokenMaker, err := tokenpkg.NewPasetoMaker(tokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) returned error: %v", tokenSymmetricKey, err)
	}

	return tokenMaker
}

func TestCreate(t *testing.T) {
	userID := randompkg.UserID()
	amount := randompkg.MoneyAmountBetween(10, 1000)
	tokenMaker := newTokenMaker(t)

	authType := middleware.AuthTypeBearer
	duration := time.Minute

	type requestBody struct {
		Amount      any    `json:"amount"`
		Description string `json:"description"`
	}

	testCases := []struct {
		name           string
		path           string
		opType         domain.OperationType
		requestBody    requestBody
		setupAuth      func(t *testing.T, r *http.Request) error
		buildStubs     func(s *MockService)
		wantStatusCode int
		wantError      string
		wantRetryAfter bool
	}{
		{
			name:        "Deposit",
			path:        "/statements/deposit",
			opType:      domain.OperationDeposit,
			requestBody: requestBody{Amount: amount.String(), Description: "salary"},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().
					Create(gomock.Any(), gomock.Eq(userID), gomock.Eq(domain.OperationDeposit), eqAmount(amount), gomock.Eq("salary")).
					Times(1).
					Return(randomStatement(userID, domain.OperationDeposit, amount), nil)
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:        "WithdrawNumericAmount",
			path:        "/statements/withdraw",
			opType:      domain.OperationWithdraw,
			requestBody: requestBody{Amount: 12.5},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				want := decimal.RequireFromString("12.5")
				s.EXPECT().
					Create(gomock.Any(), gomock.Eq(userID), gomock.Eq(domain.OperationWithdraw), eqAmount(want), gomock.Eq("")).
					Times(1).
					Return(randomStatement(userID, domain.OperationWithdraw, want), nil)
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:        "NoAuthorization",
			path:        "/statements/deposit",
			requestBody: requestBody{Amount: amount.String()},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return nil
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      middleware.ErrAuthHeaderNotFound.Error(),
		},
		{
			name:        "MissingAmount",
			path:        "/statements/deposit",
			requestBody: requestBody{},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount field is required",
		},
		{
			name:        "NegativeAmount",
			path:        "/statements/withdraw",
			requestBody: requestBody{Amount: "-5"},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount must be a positive number below 10000000000000 with at most two decimal places",
		},
		{
			name:        "TooPreciseAmount",
			path:        "/statements/deposit",
			requestBody: requestBody{Amount: "1.001"},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount must be a positive number below 10000000000000 with at most two decimal places",
		},
		{
			name:        "AmountAboveMax",
			path:        "/statements/deposit",
			requestBody: requestBody{Amount: "10000000000000"},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount must be a positive number below 10000000000000 with at most two decimal places",
		},
		{
			name:        "MalformedAmount",
			path:        "/statements/deposit",
			requestBody: requestBody{Amount: true},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      web.ErrMalformedRequest.Error(),
		},
		{
			name:        "InsufficientFunds",
			path:        "/statements/withdraw",
			requestBody: requestBody{Amount: amount.String()},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().
					Create(gomock.Any(), gomock.Eq(userID), gomock.Eq(domain.OperationWithdraw), eqAmount(amount), gomock.Any()).
					Times(1).
					Return(domain.Statement{}, domain.ErrInsufficientFunds)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrInsufficientFunds.Error(),
		},
		{
			name:        "UserNotFound",
			path:        "/statements/deposit",
			requestBody: requestBody{Amount: amount.String()},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().
					Create(gomock.Any(), gomock.Eq(userID), gomock.Eq(domain.OperationDeposit), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Statement{}, domain.ErrUserNotFound)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrUserNotFound.Error(),
		},
		{
			name:        "Timeout",
			path:        "/statements/deposit",
			requestBody: requestBody{Amount: amount.String()},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Statement{}, errorspkg.ErrTimeout)
			},
			wantStatusCode: http.StatusServiceUnavailable,
			wantError:      errorspkg.ErrTimeout.Error(),
			wantRetryAfter: true,
		},
		{
			name:        "InternalServerError",
			path:        "/statements/withdraw",
			requestBody: requestBody{Amount: amount.String()},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Statement{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Initialize mocks
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			statementService := NewMockService(ctrl)
			statementHandler := NewHandler(statementService)

			server := gin.New()
			server.Use(middleware.AuthMiddleware(tokenMaker))
			server.POST("/statements/deposit", statementHandler.Deposit)
			server.POST("/statements/withdraw", statementHandler.Withdraw)

			tc.buildStubs(statementService)

			// Send request
			body, err := json.Marshal(tc.requestBody)
			if err != nil {
				t.Fatalf("Encoding request body error: %v", err)
			}

			req, err := http.NewRequest(http.MethodPost, tc.path, bytes.NewReader(body))
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if err = tc.setupAuth(t, req); err != nil {
				t.Fatalf("tc.setupAuth(t, %+v) returned error: %v", req, err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			// Test response
			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			if got := recorder.Header().Get("Retry-After") != ""; got != tc.wantRetryAfter {
				t.Errorf("Retry-After present: got %v, want %v", got, tc.wantRetryAfter)
			}

			var data struct {
				Statement domain.Statement `json:"statement"`
			}

			res := web.Response{Data: &data}

			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusCreated {
				if res.Message != tc.wantError {
					t.Errorf(`res.Message=%q, want %q`, res.Message, tc.wantError)
				}

				return
			}

			if data.Statement.UserID != userID {
				t.Errorf("data.Statement.UserID=%q, want %q", data.Statement.UserID, userID)
			}

			if data.Statement.Type != tc.opType {
				t.Errorf("data.Statement.Type=%q, want %q", data.Statement.Type, tc.opType)
			}
		})
	}
}

func TestBalance(t *testing.T) {
	userID := randompkg.UserID()
	tokenMaker := newTokenMaker(t)

	authType := middleware.AuthTypeBearer
	duration := time.Minute

	deposit := randomStatement(userID, domain.OperationDeposit, decimal.NewFromInt(500))
	withdrawal := randomStatement(userID, domain.OperationWithdraw, decimal.NewFromInt(200))
	balance := domain.Balance{
		Balance:    decimal.NewFromInt(300),
		Statements: []domain.Statement{deposit, withdrawal},
	}

	testCases := []struct {
		name           string
		setupAuth      func(t *testing.T, r *http.Request) error
		buildStubs     func(s *MockService)
		wantStatusCode int
		wantError      string
		wantBalance    domain.Balance
	}{
		{
			name: "OK",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Balance(gomock.Any(), gomock.Eq(userID)).Times(1).Return(balance, nil)
			},
			wantStatusCode: http.StatusOK,
			wantBalance:    balance,
		},
		{
			name: "EmptyLedger",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Balance(gomock.Any(), gomock.Eq(userID)).Times(1).
					Return(domain.Balance{Balance: decimal.Zero, Statements: []domain.Statement{}}, nil)
			},
			wantStatusCode: http.StatusOK,
			wantBalance:    domain.Balance{Balance: decimal.Zero, Statements: []domain.Statement{}},
		},
		{
			name: "UserNotFound",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Balance(gomock.Any(), gomock.Eq(userID)).Times(1).
					Return(domain.Balance{}, domain.ErrUserNotFound)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrUserNotFound.Error(),
		},
		{
			name: "Unavailable",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Balance(gomock.Any(), gomock.Eq(userID)).Times(1).
					Return(domain.Balance{}, errorspkg.ErrUnavailable)
			},
			wantStatusCode: http.StatusServiceUnavailable,
			wantError:      errorspkg.ErrUnavailable.Error(),
		},
		{
			name: "ExpiredToken",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, userID, -duration)
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().Balance(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      tokenpkg.ErrExpiredToken.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			statementService := NewMockService(ctrl)
			statementHandler := NewHandler(statementService)

			server := gin.New()
			server.Use(middleware.AuthMiddleware(tokenMaker))
			server.GET("/statements/balance", statementHandler.Balance)

			tc.buildStubs(statementService)

			req, err := http.NewRequest(http.MethodGet, "/statements/balance", nil)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if err = tc.setupAuth(t, req); err != nil {
				t.Fatalf("tc.setupAuth(t, %+v) returned error: %v", req, err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			var got domain.Balance

			res := web.Response{Data: &got}

			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Message != tc.wantError {
					t.Errorf(`res.Message=%q, want %q`, res.Message, tc.wantError)
				}

				return
			}

			if diff := cmp.Diff(tc.wantBalance, got, cmpStatement...); diff != "" {
				t.Errorf("Balance mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGet(t *testing.T) {
	userID := randompkg.UserID()
	tokenMaker := newTokenMaker(t)

	authType := middleware.AuthTypeBearer
	duration := time.Minute

	senderID := randompkg.UserID()
	statement := randomStatement(userID, domain.OperationTransfer, decimal.NewFromInt(50))
	statement.SenderID = &senderID
	statement.RecipientID = &userID

	testCases := []struct {
		name           string
		statementID    string
		buildStubs     func(s *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name:        "OK",
			statementID: statement.ID.String(),
			buildStubs: func(s *MockService) {
				s.EXPECT().Get(gomock.Any(), gomock.Eq(userID), gomock.Eq(statement.ID)).Times(1).Return(statement, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:        "InvalidID",
			statementID: "42",
			buildStubs: func(s *MockService) {
				s.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "ID must be a valid UUID",
		},
		{
			name:        "NotFound",
			statementID: statement.ID.String(),
			buildStubs: func(s *MockService) {
				s.EXPECT().Get(gomock.Any(), gomock.Eq(userID), gomock.Eq(statement.ID)).Times(1).
					Return(domain.Statement{}, domain.ErrStatementNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrStatementNotFound.Error(),
		},
		{
			name:        "UserNotFound",
			statementID: statement.ID.String(),
			buildStubs: func(s *MockService) {
				s.EXPECT().Get(gomock.Any(), gomock.Eq(userID), gomock.Eq(statement.ID)).Times(1).
					Return(domain.Statement{}, domain.ErrUserNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrUserNotFound.Error(),
		},
		{
			name:        "InternalServerError",
			statementID: statement.ID.String(),
			buildStubs: func(s *MockService) {
				s.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Times(1).
					Return(domain.Statement{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			statementService := NewMockService(ctrl)
			statementHandler := NewHandler(statementService)

			server := gin.New()
			server.Use(middleware.AuthMiddleware(tokenMaker))
			server.GET("/statements/:statement_id", statementHandler.Get)

			tc.buildStubs(statementService)

			req, err := http.NewRequest(http.MethodGet, "/statements/"+tc.statementID, nil)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if err = middleware.AddAuthorization(req, tokenMaker, authType, userID, duration); err != nil {
				t.Fatalf("middleware.AddAuthorization returned error: %v", err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			var data struct {
				Statement domain.Statement `json:"statement"`
			}

			res := web.Response{Data: &data}

			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Message != tc.wantError {
					t.Errorf(`res.Message=%q, want %q`, res.Message, tc.wantError)
				}

				return
			}

			if diff := cmp.Diff(statement, data.Statement, cmpStatement...); diff != "" {
				t.Errorf("Statement mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidAmount(t *testing.T) {
	type request struct {
		Amount string `validate:"amount"`
	}

	v := validator.New()
	if err := v.RegisterValidation(AmountTag, ValidAmount); err != nil {
		t.Fatalf("RegisterValidation returned error: %v", err)
	}

	testCases := []struct {
		amount string
		want   bool
	}{
		{amount: "100", want: true},
		{amount: "0.01", want: true},
		{amount: "12.50", want: true},
		{amount: "0", want: false},
		{amount: "-1", want: false},
		{amount: "0.001", want: false},
		{amount: "9999999999999.99", want: true},
		{amount: "10000000000000", want: false},
		{amount: "abc", want: false},
		{amount: "", want: false},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.amount, func(t *testing.T) {
			t.Parallel()

			err := v.Struct(request{Amount: tc.amount})
			if got := err == nil; got != tc.want {
				t.Errorf("valid(%q) = %v, want %v (err: %v)", tc.amount, got, tc.want, err)
			}
		})
	}
}
