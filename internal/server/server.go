package server

import (
	"app/internal/config"
	"app/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// New はechoを組み立ててルートを登録する。
func New(
	cfg config.Config,
	authH *handler.AuthHandler,
	cartH *handler.CartHandler,
	orderH *handler.OrderHandler,
	paymentH *handler.PaymentHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	authH.RegisterRoutes(e)
	cartH.RegisterRoutes(e, cfg)
	orderH.RegisterRoutes(e, cfg)
	paymentH.RegisterRoutes(e, cfg)

	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}
