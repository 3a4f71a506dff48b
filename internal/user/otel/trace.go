package otel

import (
	"go.opentelemetry.io/otel"

	"github.com/mercatokart/storefront/internal/constants"
)

var Tracer = otel.Tracer(constants.AppUserService)
