package main

import (
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/payments-backend/api"
	"github.com/vocdoni/payments-backend/db"
	"github.com/vocdoni/payments-backend/payments"
	"go.vocdoni.io/dvote/log"
)

func main() {
	log.Init("debug", "stdout", nil)
	// define flags
	flag.StringP("host", "h", "0.0.0.0", "listen address")
	flag.IntP("port", "p", 8080, "listen port")
	flag.String("mongo-url", "", "The URL of the MongoDB server")
	flag.String("mongo-db", "payments-backend", "The name of the MongoDB database")
	// parse flags
	flag.Parse()
	// initialize Viper
	viper.SetEnvPrefix("PAYMENTS")
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()
	// read the configuration
	host := viper.GetString("host")
	port := viper.GetInt("port")
	mongoURL := viper.GetString("mongo-url")
	mongoDB := viper.GetString("mongo-db")
	// initialize the MongoDB database
	database, err := db.New(mongoURL, mongoDB)
	if err != nil {
		log.Fatalf("could not create the MongoDB database: %v", err)
	}
	defer database.Close()
	// create the payments service with the Stripe-backed processor client,
	// configured from PAYMENTS_STRIPEAPISECRET and PAYMENTS_STRIPEWEBHOOKSECRET
	paymentsConfig, err := payments.NewConfig()
	if err != nil {
		log.Fatalf("invalid payments configuration: %v", err)
	}
	paymentsService, err := payments.NewService(paymentsConfig, database, payments.NewClient(paymentsConfig))
	if err != nil {
		log.Fatalf("failed to create the payments service: %v", err)
	}
	// create the local API server
	api.New(&api.Config{
		Host:     host,
		Port:     port,
		DB:       database,
		Payments: paymentsService,
	}).Start()
	// wait forever, as the server is running in a goroutine
	log.Infow("server started", "host", host, "port", port)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
