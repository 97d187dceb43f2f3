package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/config"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/handler"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/infra/db"
	infraRepo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/infra/repository"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/logger"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/notify"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/payment/gateway"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.GoEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.CartItem{},
		&model.Address{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.OutboxEvent{},
		&model.AuditLog{},
	); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	outboxRepo := infraRepo.NewOutboxGormRepository(gormDB)

	//決済ゲートウェイ
	gateways := gateway.NewRegistry(
		gateway.NewVNPay(cfg.VNPayTmnCode, cfg.VNPayHashSecret, cfg.VNPayPayURL, cfg.VNPayReturnURL),
		gateway.NewMoMo(cfg.MoMoPartnerCode, cfg.MoMoAccessKey, cfg.MoMoSecretKey, cfg.MoMoEndpoint, cfg.MoMoReturnURL, cfg.MoMoIPNURL),
	)

	//Usecase生成
	cartUC := usecase.NewCartUsecase(txManager)
	checkoutUC := usecase.NewCheckoutUsecase(txManager, addressRepo, cfg)
	orderUC := usecase.NewOrderUsecase(txManager)
	paymentUC := usecase.NewPaymentUsecase(txManager, gateways, usecase.BankAccount{
		BankName:      cfg.BankName,
		AccountName:   cfg.BankAccountName,
		AccountNumber: cfg.BankAccountNumber,
	}, log)

	//通知ファンアウト（アウトボックス→Kafka）
	producer := notify.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	dispatcher := notify.NewDispatcher(outboxRepo, producer, log)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	go dispatcher.Start(dispatchCtx)

	//Handler生成＋ルーティング
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	handler.NewCartHandler(cartUC).RegisterRoutes(e, cfg)
	handler.NewOrderHandler(checkoutUC, orderUC).RegisterRoutes(e, cfg)
	handler.NewPaymentHandler(paymentUC).RegisterRoutes(e, cfg)
	handler.NewAdminOrderHandler(orderUC, paymentUC).RegisterRoutes(e, cfg)

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	//Server起動
	addr := ":" + cfg.Port
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()
	log.Info("server started", zap.String("addr", addr))

	//SIGINT/SIGTERMで順に止める：HTTP→ディスパッチャ→プロデューサ
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}

	stopDispatch()
	dispatcher.Wait()
	if err := producer.Close(); err != nil {
		log.Error("producer close failed", zap.Error(err))
	}

	log.Info("server stopped")
}
