package asset

import "go.opentelemetry.io/otel"

const scopeName = "github.com/Faultbox/arviewer/internal/asset"

var tracer = otel.Tracer(scopeName)
