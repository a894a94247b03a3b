package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/mgo.v2/bson"

	"github.com/mongowire/mongowire/auth"
	"github.com/mongowire/mongowire/conn"
	"github.com/mongowire/mongowire/msg"
)

var (
	host        = flag.String("host", "localhost:27017", "server to ping")
	username    = flag.String("username", "", "username to authenticate with")
	password    = flag.String("password", "", "password to authenticate with")
	database    = flag.String("database", "admin", "database to authenticate against")
	mechanism   = flag.String("mechanism", "", "authentication mechanism; empty negotiates one")
	compressors = flag.String("compressors", "", "comma separated wire compressors to offer")
	timeout     = flag.Duration("timeout", 10*time.Second, "overall timeout")
	verbose     = flag.Bool("v", false, "log connection lifecycle events")
)

func main() {
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logger := logrus.NewEntry(logrus.StandardLogger())

	opts := []conn.Option{
		conn.WithAppName("mongowire-ping"),
		conn.WithLogger(logger),
	}
	if *compressors != "" {
		opts = append(opts, conn.WithCompressors(strings.Split(*compressors, ",")...))
	}
	if *username != "" {
		authenticator, err := auth.CreateAuthenticator(*mechanism, &auth.Cred{
			Source:    *database,
			Username:  *username,
			Password:  *password,
			Mechanism: *mechanism,
		})
		if err != nil {
			logger.WithError(err).Fatal("invalid authentication configuration")
		}
		opts = append(opts, conn.WithAuthenticator(authenticator))
	}

	c := conn.New(conn.Endpoint(*host), opts...)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if !c.Connectable(ctx) {
		logger.WithField("endpoint", c.Address()).Fatal("server is not reachable")
	}

	pingReq := msg.NewCommand(msg.NextRequestID(), "admin", true, bson.D{{Name: "ping", Value: 1}})
	if err := conn.ExecuteCommand(ctx, c, pingReq, &bson.D{}); err != nil {
		c.Disconnect()
		logger.WithError(err).Fatal("ping failed")
	}

	fields := logrus.Fields{
		"endpoint":      c.Address(),
		"authenticated": c.Authenticated(),
	}
	if desc := c.Desc(); desc != nil {
		fields["minWireVersion"] = desc.WireVersion.Min
		fields["maxWireVersion"] = desc.WireVersion.Max
		fields["maxMessageSizeBytes"] = desc.MaxMessageSizeBytes
	}
	logger.WithFields(fields).Info("ping succeeded")

	c.Disconnect()
}
