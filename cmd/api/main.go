package main

// @title Support Desk API
// @version 1.0
// @description Customer support chat backend answering from product documentation.

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:3001
// @BasePath /
// @schemes http
import (
	_ "support-desk/docs"
	protocol "support-desk/protocal"

	"github.com/sirupsen/logrus"
)

func main() {
	err := protocol.ServeHTTP()
	if err != nil {
		logrus.Fatalln(err)
	}
}
