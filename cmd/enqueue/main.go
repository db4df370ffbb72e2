package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"ms-discovery/internal/awsutil"
	"ms-discovery/internal/config"
	"ms-discovery/internal/trending"
)

func main() {
	action := flag.String("action", "RECALCULATE", "Trending job action: RECALCULATE, SYNC")
	flag.Parse()

	cfg := config.Load()
	if cfg.SQSTrendingQueueURL == "" {
		log.Println("AWS_SQS_TRENDING_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := awsutil.LoadConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("unable to load AWS SDK config, %v", err)
	}

	id, err := trending.Enqueue(ctx, awsutil.NewSQSClient(awsCfg, cfg), cfg.SQSTrendingQueueURL, strings.ToUpper(*action), time.Now())
	if err != nil {
		log.Fatalf("Failed to enqueue trending job: %v", err)
	}
	log.Printf("Enqueued %s trending job as message %s", strings.ToUpper(*action), id)
}
