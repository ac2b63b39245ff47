package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinukim/inkverse/api"
	"github.com/jinukim/inkverse/cache/redis"
	"github.com/jinukim/inkverse/mq/sqsmq"
	"github.com/jinukim/inkverse/store/dynamo"
)

const DynamoDBTable = "Inkverse"

func main() {
	ctx := context.Background()
	devMode := os.Getenv("DEV_MODE") == "true"

	canvasStore, err := dynamo.NewDynamoCanvasStore(ctx, devMode, os.Getenv("DYNAMODB_ENDPOINT"), DynamoDBTable)
	if err != nil {
		log.Fatalf("Failed to create dynamodb store: %v", err)
	}

	retentionQueue, err := sqsmq.NewRetentionQueue(ctx, devMode, os.Getenv("SQS_ENDPOINT"))
	if err != nil {
		log.Fatalf("Failed to create SQS MQ: %v", err)
	}

	canvasCache, err := redis.NewRedisCanvasCache(ctx, devMode, os.Getenv("REDIS_ENDPOINT"))
	if err != nil {
		log.Fatalf("Failed to create redis cache: %v", err)
	}

	// Optional: when set, websocket identities must arrive as externally
	// issued JWTs instead of bare bind identifiers
	var jwtSecret []byte
	if encoded := os.Getenv("JWT_SECRET"); encoded != "" {
		jwtSecret, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			log.Fatalf("Failed to decode base64 jwtSecret: %v", err)
		}
	}

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	inkverseApi, err := api.NewInkverseAPI(canvasStore, retentionQueue, canvasCache, jwtSecret, shutdownCtx)
	if err != nil {
		log.Fatalf("Failed to create inkverse api: %v", err)
	}

	mux := http.NewServeMux()
	inkverseApi.RegisterRoutes(mux, os.Getenv("ALLOWED_ORIGIN"))

	hostPort := "8080"
	if p := os.Getenv("HOST_PORT"); p != "" {
		hostPort = p
	}
	log.Printf("Starting server on host port: %s\n", hostPort)
	log.Fatal(http.ListenAndServe(":"+hostPort, mux))
}
