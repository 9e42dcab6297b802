package app

import (
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

func TestBuildGatewayRegistry_MockOnly(t *testing.T) {
	registry := buildGatewayRegistry(Config{}, log.WithField("test", "gateway"))

	names := registry.Names()
	if len(names) != 1 || names[0] != "mock" {
		t.Fatalf("expected only mock gateway without credentials, got %v", names)
	}
}

func TestBuildGatewayRegistry_WithClickPay(t *testing.T) {
	registry := buildGatewayRegistry(Config{
		ClickPayProfileID: 44272,
		ClickPayServerKey: "server-key",
	}, log.WithField("test", "gateway"))

	if _, err := registry.Get("clickpay"); err != nil {
		t.Fatalf("expected clickpay registered, got %v", err)
	}
	if _, err := registry.Get("mock"); err != nil {
		t.Fatalf("expected mock still registered, got %v", err)
	}
}

func TestSelectGateway_DefaultsToMock(t *testing.T) {
	registry := buildGatewayRegistry(Config{}, log.WithField("test", "gateway"))

	gw, err := selectGateway(registry, Config{})
	if err != nil {
		t.Fatalf("selectGateway failed: %v", err)
	}
	if gw.Name() != "mock" {
		t.Errorf("expected mock gateway, got %s", gw.Name())
	}
}

func TestSelectGateway_Unknown(t *testing.T) {
	registry := buildGatewayRegistry(Config{}, log.WithField("test", "gateway"))

	_, err := selectGateway(registry, Config{Gateway: "stripe"})
	if !errors.Is(err, domain.ErrUnknownGateway) {
		t.Fatalf("expected ErrUnknownGateway, got %v", err)
	}
}
