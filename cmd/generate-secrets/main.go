package main

import (
	"fmt"
	"log"

	"github.com/gogobus/booking-gateway/internal/utils"
	flag "github.com/spf13/pflag"
)

func main() {
	length := flag.IntP("bytes", "b", 32, "number of random bytes in the secret")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Session Secret Generator for GOGOBUS")
	fmt.Println("===========================================")
	fmt.Println()

	var (
		secret string
		err    error
	)
	if *length == 32 {
		secret, err = utils.GenerateSessionSecret()
	} else {
		secret, err = utils.GenerateSecret(*length)
	}
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	fmt.Println("✅ Secret generated successfully!")
	fmt.Println()
	fmt.Println("Add this to your .env file:")
	fmt.Println()
	fmt.Printf("SESSION_SECRET=%s\n", secret)
	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Keep this secret safe and never commit it to version control!")
	fmt.Println("===========================================")
}
