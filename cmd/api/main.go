package main

import (
	"net/http"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/gateway/fxrate"
	"app/internal/gateway/paystack"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	//.envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.VerificationToken{},
		&model.UnmatchedPayment{},
	); err != nil {
		panic(err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	tokenRepo := infraRepo.NewVerificationTokenGormRepository(gormDB)
	unmatchedRepo := infraRepo.NewUnmatchedPaymentGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	hasher := usecase.NewBcryptPasswordHasher(12)
	verifier := usecase.NewBcryptPasswordVerifier()
	issuer := &jwtIssuer{
		secret:    []byte(cfg.JWTSecret),
		accessTTL: 15 * time.Minute,
	}

	//外部ゲートウェイ
	gatewayHTTP := &http.Client{Timeout: 15 * time.Second}
	paystackClient := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.PaystackWebhookSecret, gatewayHTTP)
	rateClient := fxrate.NewClient(cfg.ExchangeRateURL, gatewayHTTP)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, hasher, verifier, issuer, clock)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txManager, idGen, clock)
	paymentUC := usecase.NewPaymentUsecase(
		txManager,
		orderRepo,
		userRepo,
		unmatchedRepo,
		paystackClient,
		rateClient,
		idGen,
		clock,
		cfg.PaymentCallbackURL,
		cfg.DefaultCurrency,
	)
	tokenUC := usecase.NewTokenUsecase(tokenRepo, orderRepo, orderItemRepo, clock)

	//Handler生成
	authH := handler.NewAuthHandler(authUC)
	cartH := handler.NewCartHandler(cartUC)
	orderH := handler.NewOrderHandler(orderUC)
	paymentH := handler.NewPaymentHandler(paymentUC, tokenUC)

	//Server起動
	e := server.New(cfg, authH, cartH, orderH, paymentH)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	if err := server.Start(e, addr); err != nil {
		panic(err)
	}
}
