package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	FrameworkChat      = "chat"
	FrameworkResponses = "responses"
)

type Configuration struct {
	ApiPort string `json:"api_port"`
	LogMode string `json:"log_mode"` // "dev" ou "prod"

	// CRM (leads/contatos). Vazio desabilita o CRM.
	Database string `json:"database"` // "sqlite3" ou "postgres"
	DbHost   string `json:"db_host"`
	DbPort   string `json:"db_port"`
	DbUser   string `json:"db_user"`
	DbName   string `json:"db_name"`
	DbPass   string `json:"db_pass"`
	DbPath   string `json:"db_path"`

	Redis struct {
		URL            string `json:"url"`
		TTLBlockSecs   int    `json:"ttl_block"`
		TTLDebounceSec int    `json:"ttl_debounce"`
	} `json:"redis"`

	OpenAI struct {
		APIKey  string `json:"api_key"`
		Model   string `json:"model"`
		BaseURL string `json:"base_url"`
	} `json:"openai"`

	// AgentFramework seleciona a variante do agente SDR: "chat" ou "responses".
	AgentFramework string `json:"agent_framework"`

	Evolution struct {
		URL      string `json:"url"`
		APIKey   string `json:"api_key"`
		Instance string `json:"instance"`
	} `json:"evolution"`

	ElevenLabs struct {
		APIKey  string `json:"api_key"`
		VoiceID string `json:"voice_id"`
		Model   string `json:"model"`
	} `json:"elevenlabs"`

	Sheets struct {
		CredentialsFile string `json:"credentials_file"`
		DocumentID      string `json:"document_id"`
	} `json:"sheets"`

	Bot struct {
		Name            string  `json:"name"`
		Company         string  `json:"company"`
		Seller          string  `json:"seller"`
		MessageDelayMin float64 `json:"message_delay_min"`
		MessageDelayMax float64 `json:"message_delay_max"`
	} `json:"bot"`

	Security struct {
		AdminAPIKey   string `json:"admin_api_key"`
		WebhookSecret string `json:"webhook_secret"`
	} `json:"security"`

	FollowUp struct {
		Timezone        string `json:"timezone"`
		PollIntervalSec int    `json:"poll_interval"`
	} `json:"followup"`
}

// Get loads the configuration or exits the process.
func Get(path string) Configuration {
	c, err := Load(path)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

// Load reads an optional JSON file, applies .env and environment overrides
// and fills defaults. A missing file is not an error.
func Load(path string) (Configuration, error) {
	var c Configuration

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(b, &c); err != nil {
				return c, err
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return c, err
		}
	}

	_ = godotenv.Load()
	applyEnv(&c)
	applyDefaults(&c)
	return c, nil
}

func applyEnv(c *Configuration) {
	setString(&c.ApiPort, "PORT")
	setString(&c.LogMode, "LOG_MODE")

	setString(&c.Database, "DATABASE")
	setString(&c.DbHost, "DB_HOST")
	setString(&c.DbPort, "DB_PORT")
	setString(&c.DbUser, "DB_USER")
	setString(&c.DbName, "DB_NAME")
	setString(&c.DbPass, "DB_PASS")
	setString(&c.DbPath, "DB_PATH")

	setString(&c.Redis.URL, "REDIS_URL")
	setInt(&c.Redis.TTLBlockSecs, "REDIS_TTL_BLOCK")
	setInt(&c.Redis.TTLDebounceSec, "REDIS_TTL_DEBOUNCE")

	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.AgentFramework, "AGENT_FRAMEWORK")

	setString(&c.Evolution.URL, "EVOLUTION_API_URL")
	setString(&c.Evolution.APIKey, "EVOLUTION_API_KEY")
	setString(&c.Evolution.Instance, "EVOLUTION_INSTANCE")

	setString(&c.ElevenLabs.APIKey, "ELEVENLABS_API_KEY")
	setString(&c.ElevenLabs.VoiceID, "ELEVENLABS_VOICE_ID")
	setString(&c.ElevenLabs.Model, "ELEVENLABS_MODEL")

	setString(&c.Sheets.CredentialsFile, "GOOGLE_SHEETS_CREDENTIALS_FILE")
	setString(&c.Sheets.DocumentID, "GOOGLE_SHEETS_DOCUMENT_ID")

	setString(&c.Bot.Name, "BOT_NAME")
	setString(&c.Bot.Company, "BOT_COMPANY")
	setString(&c.Bot.Seller, "BOT_SELLER")
	setFloat(&c.Bot.MessageDelayMin, "MESSAGE_DELAY_MIN")
	setFloat(&c.Bot.MessageDelayMax, "MESSAGE_DELAY_MAX")

	setString(&c.Security.AdminAPIKey, "ADMIN_API_KEY")
	setString(&c.Security.WebhookSecret, "WEBHOOK_SECRET")

	setString(&c.FollowUp.Timezone, "FOLLOWUP_TIMEZONE")
	setInt(&c.FollowUp.PollIntervalSec, "FOLLOWUP_POLL_INTERVAL")
}

// defaults (pra evitar nil/zero chato)
func applyDefaults(c *Configuration) {
	if c.ApiPort == "" {
		c.ApiPort = "8000"
	}
	if c.LogMode == "" {
		c.LogMode = "dev"
	}
	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379"
	}
	if c.Redis.TTLBlockSecs <= 0 {
		c.Redis.TTLBlockSecs = 7200
	}
	if c.Redis.TTLDebounceSec <= 0 {
		c.Redis.TTLDebounceSec = 20
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.AgentFramework != FrameworkResponses {
		c.AgentFramework = FrameworkChat
	}
	if c.ElevenLabs.Model == "" {
		c.ElevenLabs.Model = "eleven_v3"
	}
	if c.Sheets.CredentialsFile == "" {
		c.Sheets.CredentialsFile = "credentials.json"
	}
	if c.Bot.Name == "" {
		c.Bot.Name = "Luana"
	}
	if c.Bot.Company == "" {
		c.Bot.Company = "Fyness"
	}
	if c.Bot.Seller == "" {
		c.Bot.Seller = "João"
	}
	if c.Bot.MessageDelayMin <= 0 {
		c.Bot.MessageDelayMin = 1.0
	}
	if c.Bot.MessageDelayMax < c.Bot.MessageDelayMin {
		c.Bot.MessageDelayMax = 3.0
	}
	if c.FollowUp.Timezone == "" {
		c.FollowUp.Timezone = "America/Sao_Paulo"
	}
	if c.FollowUp.PollIntervalSec <= 0 {
		c.FollowUp.PollIntervalSec = 300
	}
}

func (c Configuration) DebounceWindow() time.Duration {
	return time.Duration(c.Redis.TTLDebounceSec) * time.Second
}

func (c Configuration) BlockTTL() time.Duration {
	return time.Duration(c.Redis.TTLBlockSecs) * time.Second
}

func (c Configuration) PollInterval() time.Duration {
	return time.Duration(c.FollowUp.PollIntervalSec) * time.Second
}

func (c Configuration) MessageDelays() (time.Duration, time.Duration) {
	return time.Duration(c.Bot.MessageDelayMin * float64(time.Second)),
		time.Duration(c.Bot.MessageDelayMax * float64(time.Second))
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
