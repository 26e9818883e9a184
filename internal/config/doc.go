// Package config manages user-level settings stored at ~/.gpudash/config.yaml.
// Values can also come from GPUDASH_* environment variables or a .env file in
// the working directory, which is how the backend base URL is usually set.
package config
