package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/deliverynote-api/internal/app"
	"github.com/yukikurage/deliverynote-api/internal/config"
	"github.com/yukikurage/deliverynote-api/internal/lambdaproxy"
	"github.com/yukikurage/deliverynote-api/internal/obs"
)

// Runs the same API behind API Gateway. Configuration comes from the function
// environment; there is no dotenv file in the bundle.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		obs.NewLogger(true).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := obs.NewLogger(true)
	gin.SetMode(gin.ReleaseMode)

	ctx := context.Background()
	api, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start application", "error", err)
		os.Exit(1)
	}

	proxy := lambdaproxy.New(api.Engine)
	// The sandbox freezes once the handler returns, so mail must leave first.
	lambda.Start(func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := proxy.Serve(ctx, event)
		api.Drain()
		return resp, err
	})
}
