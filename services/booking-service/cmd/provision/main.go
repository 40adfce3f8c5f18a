// Command provision creates a customer with an owner login and a default
// Monday to Friday week.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/canerconnect/terminflow/libs/auth"
	"github.com/canerconnect/terminflow/libs/config"
	"github.com/canerconnect/terminflow/libs/db"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/outbox"
	"github.com/canerconnect/terminflow/services/booking-service/internal/storage"
)

func main() {
	_ = config.LoadDotEnv()
	var (
		dbURL     = flag.String("database-url", config.String("DATABASE_URL", ""), "postgres connection string")
		subdomain = flag.String("subdomain", "", "public subdomain of the customer")
		name      = flag.String("name", "", "display name")
		email     = flag.String("email", "", "customer contact email")
		phone     = flag.String("phone", "", "customer contact phone")
		address   = flag.String("address", "", "customer address")
		tz        = flag.String("timezone", "Europe/Berlin", "IANA time zone of the calendar")
		username  = flag.String("username", "", "owner login")
		password  = flag.String("password", os.Getenv("PROVISION_PASSWORD"), "owner password")
		hours     = flag.String("hours", "09:00-17:00", "Monday to Friday working hours, empty to skip")
		migrate   = flag.Bool("migrate", false, "apply the schema first")
	)
	flag.Parse()

	if strings.TrimSpace(*dbURL) == "" {
		fatal("DATABASE_URL is required")
	}
	if *subdomain == "" || *name == "" || *username == "" || len(*password) < 8 {
		fatal("subdomain, name, username and a password of at least 8 characters are required")
	}
	if _, err := time.LoadLocation(*tz); err != nil {
		fatal(fmt.Sprintf("unknown timezone %q", *tz))
	}
	week, err := parseWeek(*hours)
	if err != nil {
		fatal(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := db.Open(ctx, *dbURL, db.Options{MaxConns: 2})
	if err != nil {
		fatal(err.Error())
	}
	defer pool.Close()

	repo := storage.NewRepository(pool, outbox.NewRepository(pool))
	if *migrate {
		if err := repo.Migrate(ctx); err != nil {
			fatal(err.Error())
		}
	}

	c := model.Customer{
		Subdomain: strings.ToLower(strings.TrimSpace(*subdomain)),
		Name:      *name,
		Email:     *email,
		Phone:     *phone,
		Address:   *address,
		Timezone:  *tz,
	}
	if err := repo.CreateCustomer(ctx, &c); err != nil {
		fatal(err.Error())
	}
	hash, err := auth.HashPassword(*password)
	if err != nil {
		fatal(err.Error())
	}
	if err := repo.CreateAdminUser(ctx, &model.AdminUser{CustomerID: c.ID, Username: *username, PasswordHash: hash, Role: "owner"}); err != nil {
		fatal(err.Error())
	}
	if len(week) > 0 {
		if err := repo.ReplaceWorkingHours(ctx, c.ID, week); err != nil {
			fatal(err.Error())
		}
	}
	fmt.Printf("customer_id=%s subdomain=%s\n", c.ID, c.Subdomain)
}

func parseWeek(raw string) ([]model.WorkingHours, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	from, to, ok := strings.Cut(raw, "-")
	if !ok {
		return nil, fmt.Errorf("hours must look like 09:00-17:00 (got %q)", raw)
	}
	start, err := model.ParseClock(from)
	if err != nil {
		return nil, err
	}
	end, err := model.ParseClock(to)
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, fmt.Errorf("hours end must be after start (got %q)", raw)
	}
	week := make([]model.WorkingHours, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		wh := model.WorkingHours{Weekday: d}
		if d != time.Sunday && d != time.Saturday {
			wh.IsWorkingDay, wh.Start, wh.End = true, start, end
		}
		week = append(week, wh)
	}
	return week, nil
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
