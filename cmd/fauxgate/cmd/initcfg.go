package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jmcleod/fauxgate/config"
	"github.com/jmcleod/fauxgate/gate"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively generate a configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		line := liner.NewLiner()
		defer line.Close()
		line.SetCtrlCAborts(true)

		p := &prompter{line: line}

		fileName := p.ask("Name of the configuration file to create", "config.json")
		proxyPort := p.askInt("Port for the proxy to listen on", 8000)
		expiryMinutes := p.askInt("Timeout for sessions in minutes", 20)
		maxAttempts := p.askInt("Maximum login attempts before an account is locked", 3)
		agentName := p.ask("Value of the SMAGENTNAME post parameter (empty to disable the check)", "")
		appHost := p.ask("Hostname of the application you want protected", "localhost")
		appPort := p.askInt("Port of the application you want protected", 4567)
		logoff := p.ask("Relative URL for logging off a user", "/system/logout")
		notAuthenticated := p.ask("Relative URL for redirecting unauthenticated users", "/system/error/notauthenticated")
		badLogin := p.ask("Relative URL for users that entered an invalid username", "/system/error/badlogin")
		badPassword := p.ask("Relative URL for users that entered an invalid password", "/system/error/badpassword")
		accountLocked := p.ask("Relative URL for users whose account is locked", "/system/error/accountlocked")
		protectedPath := p.ask("Relative URL for the protected resources", "/protected")
		if p.err != nil {
			return p.err
		}

		cfg := config.Config{
			Proxy: config.Proxy{
				Port:          proxyPort,
				SetXProxiedBy: true,
			},
			SiteMinder: config.SiteMinder{
				SMCookie:             "SMSESSION",
				FormCredCookie:       "FORMCRED",
				UserIDField:          "USERNAME",
				PasswordField:        "PASSWORD",
				TargetField:          "TARGET",
				SessionExpiryMinutes: expiryMinutes,
				MaxLoginAttempts:     maxAttempts,
				SMAgentName:          agentName,
				LoginFCC:             "/public/siteminderagent/login.fcc",
			},
			UpstreamApps: map[string]config.UpstreamApp{
				"sample_target": {
					Hostname:         appHost,
					Port:             appPort,
					Logoff:           logoff,
					NotAuthenticated: notAuthenticated,
					BadLogin:         badLogin,
					BadPassword:      badPassword,
					AccountLocked:    accountLocked,
					PathFilters: []gate.PathFilterRule{
						{URL: protectedPath + "*", Protected: true},
					},
				},
			},
			Users: []gate.User{
				{
					Name:     "bob",
					Password: "test1234",
					AuthHeaders: map[string]string{
						"client-id": "cid123",
						"user-id":   "uid456",
					},
				},
			},
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		data, err := json.MarshalIndent(cfg, "", "\t")
		if err != nil {
			return err
		}
		if err := os.WriteFile(fileName, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", fileName, err)
		}

		fmt.Printf("Wrote %s\n", fileName)
		return nil
	},
}

// prompter wraps liner with defaulting and sticky error handling so the
// question list reads linearly.
type prompter struct {
	line *liner.State
	err  error
}

func (p *prompter) ask(question, defaultValue string) string {
	if p.err != nil {
		return defaultValue
	}
	prompt := question
	if defaultValue != "" {
		prompt = fmt.Sprintf("%s [%s]", question, defaultValue)
	}
	answer, err := p.line.Prompt(prompt + ": ")
	if err != nil {
		p.err = err
		return defaultValue
	}
	if answer == "" {
		return defaultValue
	}
	return answer
}

func (p *prompter) askInt(question string, defaultValue int) int {
	for {
		answer := p.ask(question, strconv.Itoa(defaultValue))
		if p.err != nil {
			return defaultValue
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 0 {
			fmt.Println("Please enter a non-negative number.")
			continue
		}
		return n
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}
