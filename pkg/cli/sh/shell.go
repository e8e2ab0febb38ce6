package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/regconsole/pkg/client"
	"github.com/robotalks/regconsole/pkg/env/host"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *host.Config
	Client *client.Client
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&SetCmd,
		&ReadCmd,
		&IntervalCmd,
		&DumpCmd,
		&SendCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *host.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context, cl *client.Client)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		cl := ShellFrom(c).Client
		if cl == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c, cl)
	}
}

// Print prints a result either as text or JSON.
func (s *Shell) Print(c *ishell.Context, text string, v interface{}) {
	if !s.OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect connects to the console at linkURL.
func (s *Shell) Connect(linkURL string) error {
	conf := *s.Config
	conf.LinkURL = linkURL
	cl, err := conf.Connect()
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Client = cl
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", linkURL))
	return nil
}

// Disconnect disconnects current console.
func (s *Shell) Disconnect() {
	if s.Client != nil {
		s.Client.Close()
		s.Client = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Context creates the context of one command.
func (s *Shell) Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Config.Timeout)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.LinkURL != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.LinkURL)
		}
		if err := s.Connect(s.Config.LinkURL); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.LinkURL, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(host.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
