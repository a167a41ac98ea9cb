package httpapi

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/copyleftdev/toon-mcp/internal/core"
)

// docsPage is the interactive API browser served at /api-docs. It loads
// Swagger UI from a CDN and points it at the generated OpenAPI document.
const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>TOON API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api-docs/openapi.json",
      dom_id: "#swagger-ui"
    });
  </script>
</body>
</html>
`

// openAPIDocument renders the OpenAPI 3 description of the REST surface,
// with component schemas reflected from the request and response structs.
func openAPIDocument() []byte {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}
	schemas := map[string]interface{}{
		"EncodeRequest":    reflector.Reflect(&core.EncodeRequest{}),
		"EncodeResponse":   reflector.Reflect(&core.EncodeResponse{}),
		"DecodeRequest":    reflector.Reflect(&core.DecodeRequest{}),
		"DecodeResponse":   reflector.Reflect(&core.DecodeResponse{}),
		"ValidateRequest":  reflector.Reflect(&core.ValidateRequest{}),
		"ValidateResponse": reflector.Reflect(&core.ValidateResponse{}),
		"StatsRequest":     reflector.Reflect(&core.StatsRequest{}),
		"StatsResponse":    reflector.Reflect(&core.StatsResponse{}),
		"HealthResponse":   reflector.Reflect(&core.HealthResponse{}),
		"APIError":         reflector.Reflect(&APIError{}),
	}

	doc := map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "TOON API",
			"description": "Encode, decode, validate and measure TOON documents.",
			"version":     core.Version,
		},
		"paths": map[string]interface{}{
			"/health":          getPath("Service health", "HealthResponse"),
			"/api/v1/encode":   postPath("Encode a JSON value as TOON", "EncodeRequest", "EncodeResponse"),
			"/api/v1/decode":   postPath("Decode TOON text into JSON", "DecodeRequest", "DecodeResponse"),
			"/api/v1/validate": postPath("Check whether text parses as TOON", "ValidateRequest", "ValidateResponse"),
			"/api/v1/stats":    postPath("Compare JSON and TOON sizes", "StatsRequest", "StatsResponse"),
		},
		"components": map[string]interface{}{
			"schemas": schemas,
		},
	}

	out, err := json.Marshal(doc)
	if err != nil {
		// The document is built from static structs; this cannot fail at
		// runtime once it passes in tests.
		panic(err)
	}
	return out
}

func schemaRef(name string) map[string]interface{} {
	return map[string]interface{}{
		"$ref": "#/components/schemas/" + name,
	}
}

func jsonBody(schema string) map[string]interface{} {
	return map[string]interface{}{
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": schemaRef(schema),
			},
		},
	}
}

func getPath(summary, responseSchema string) map[string]interface{} {
	return map[string]interface{}{
		"get": map[string]interface{}{
			"summary": summary,
			"responses": map[string]interface{}{
				"200": withDescription(jsonBody(responseSchema), "Success"),
			},
		},
	}
}

func postPath(summary, requestSchema, responseSchema string) map[string]interface{} {
	return map[string]interface{}{
		"post": map[string]interface{}{
			"summary":     summary,
			"requestBody": jsonBody(requestSchema),
			"responses": map[string]interface{}{
				"200": withDescription(jsonBody(responseSchema), "Success"),
				"400": withDescription(jsonBody("APIError"), "Invalid input"),
			},
		},
	}
}

func withDescription(body map[string]interface{}, description string) map[string]interface{} {
	out := make(map[string]interface{}, len(body)+1)
	for k, v := range body {
		out[k] = v
	}
	out["description"] = description
	return out
}
