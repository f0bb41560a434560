package main

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
	"github.com/pebbe/zmq4"

	_ "modernc.org/sqlite"

	"povtools/internal/common"
	queries "povtools/internal/db"
)

type RequestHandler struct {
	Db     *sql.DB
	Socket *zmq4.Socket
}

func contains(list []string, e string) bool {
	for _, s := range list {
		if s == e {
			return true
		}
	}
	return false
}

func (this *RequestHandler) TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens, err := common.LoadTokens(this.Db)
		if err != nil {
			log.Println("Could not load API tokens.")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := c.GetHeader("X-Token")
		if !contains(tokens, token) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// notifyRenderer pushes a freshly stored session id to the plot renderer.
// A missing renderer connection is tolerated; sessions are still stored.
func (this *RequestHandler) notifyRenderer(id string) {
	if this.Socket == nil {
		return
	}
	if _, err := this.Socket.Send(id, 0); err != nil {
		log.Println("[WARN] could not notify renderer:", err)
	}
}

func main() {
	var opts struct {
		DatabaseFile string `short:"d" long:"database" description:"SQLite3 database file path" required:"true"`
		Host         string `short:"h" long:"host" description:"Host to bind on" default:"127.0.0.1"`
		Port         string `short:"p" long:"port" description:"Port to bind on" default:"8080"`
		ZmqHost      string `short:"H" long:"zhost" description:"ZMQ renderer host" default:"127.0.0.1"`
		ZmqPort      string `short:"P" long:"zport" description:"ZMQ renderer port" default:"5555"`
	}
	_, err := flags.Parse(&opts)
	if err != nil {
		return
	}

	db, err := sql.Open("sqlite", opts.DatabaseFile)
	if err != nil {
		log.Fatal("Could not open database")
	}
	if _, err := db.Exec(queries.Schema); err != nil {
		log.Fatal("Could not create data tables")
	}

	soc, err := zmq4.NewSocket(zmq4.PUSH)
	if err != nil {
		log.Println("[WARN] could not create ZMQ socket (renderer notification disabled)")
		soc = nil
	} else if err = soc.Connect("tcp://" + opts.ZmqHost + ":" + opts.ZmqPort); err != nil {
		log.Println("[WARN] could not connect to ZMQ renderer (renderer notification disabled)")
		soc.Close()
		soc = nil
	}
	if soc != nil {
		defer soc.Close()
	}

	rh := RequestHandler{Db: db, Socket: soc}
	router := gin.Default()
	router.SetTrustedProxies(nil)

	router.GET("/conversionmethods", rh.GetConversionMethods)
	router.GET("/conversionmethod/:id", rh.GetConversionMethod)
	router.PUT("/conversionmethod", rh.TokenAuthMiddleware(), rh.PutConversionMethod)
	router.DELETE("/conversionmethod/:id", rh.TokenAuthMiddleware(), rh.DeleteConversionMethod)

	router.GET("/sensorconfigs", rh.GetSensorConfigs)
	router.GET("/sensorconfig/:id", rh.GetSensorConfig)
	router.PUT("/sensorconfig", rh.TokenAuthMiddleware(), rh.PutSensorConfig)
	router.DELETE("/sensorconfig/:id", rh.TokenAuthMiddleware(), rh.DeleteSensorConfig)

	router.GET("/sessions", rh.GetSessions)
	router.GET("/session/:id", rh.GetSession)
	router.GET("/sessiondata/:id", rh.GetSessionData)
	router.PUT("/session", rh.TokenAuthMiddleware(), rh.PutSession)
	router.PUT("/session/processed", rh.TokenAuthMiddleware(), rh.PutProcessedSession)
	router.DELETE("/session/:id", rh.TokenAuthMiddleware(), rh.DeleteSession)
	router.PATCH("/session/:id", rh.TokenAuthMiddleware(), rh.PatchSession)

	router.Run(opts.Host + ":" + opts.Port)
}
