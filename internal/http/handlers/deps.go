package handlers

import (
	"github.com/jmoiron/sqlx"

	"fefe/internal/config"
	"fefe/internal/notify"
	"fefe/internal/payments"
	"fefe/internal/repos"
	"fefe/internal/services"
)

type Deps struct {
	AuthHandler         *AuthHandler
	ProductHandler      *ProductHandler
	OrderHandler        *OrderHandler
	PaymentHandler      *PaymentHandler
	CollabHandler       *CollabHandler
	CollaboratorHandler *CollaboratorHandler
	AdminHandler        *AdminHandler

	Auth *services.AuthService
}

func NewDeps(db *sqlx.DB, cfg config.Config, provider payments.Provider) *Deps {
	userRepo := repos.NewUserRepo(db)
	prodRepo := repos.NewProductRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	collabRepo := repos.NewCollabRepo(db)
	collaboratorRepo := repos.NewCollaboratorRepo(db)

	authSvc := &services.AuthService{Users: userRepo}
	catalogSvc := services.NewCatalogService(prodRepo)
	orderSvc := services.NewOrderService(orderRepo, prodRepo, notify.LogNotifier{})
	paySvc := services.NewPaymentService(orderRepo, orderSvc, provider, cfg.WebhookSecret)
	collabSvc := services.NewCollabService(collabRepo, collaboratorRepo, cfg.DefaultCommission)

	return &Deps{
		AuthHandler:         &AuthHandler{Auth: authSvc},
		ProductHandler:      &ProductHandler{Catalog: catalogSvc},
		OrderHandler:        &OrderHandler{Orders: orderSvc},
		PaymentHandler:      &PaymentHandler{Payments: paySvc, Orders: orderSvc},
		CollabHandler:       &CollabHandler{Collabs: collabSvc},
		CollaboratorHandler: &CollaboratorHandler{Collabs: collabSvc},
		AdminHandler:        &AdminHandler{Orders: orderSvc, Catalog: catalogSvc},
		Auth:                authSvc,
	}
}
