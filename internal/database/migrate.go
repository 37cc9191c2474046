package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied statement by statement so the DSN does not need
// multiStatements.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(100) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('ADMIN','USER') NOT NULL DEFAULT 'USER',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS products (
		id          CHAR(36)      NOT NULL PRIMARY KEY,
		name        VARCHAR(100)  NOT NULL,
		description VARCHAR(500)  NULL,
		price       DECIMAL(12,2) NOT NULL,
		stock       INT           NOT NULL DEFAULT 0,
		created_at  DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at  DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		KEY idx_products_name (name),
		CONSTRAINT chk_products_stock CHECK (stock >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS orders (
		id          CHAR(36)      NOT NULL PRIMARY KEY,
		user_id     CHAR(36)      NULL,
		status      VARCHAR(16)   NOT NULL DEFAULT 'PLACED',
		total_price DECIMAL(12,2) NOT NULL,
		created_at  DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		KEY idx_orders_user (user_id),
		CONSTRAINT fk_orders_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS order_items (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		order_id   CHAR(36)        NOT NULL,
		product_id CHAR(36)        NULL,
		quantity   INT             NOT NULL,
		KEY idx_order_items_order (order_id),
		KEY idx_order_items_product (product_id),
		CONSTRAINT chk_order_items_quantity CHECK (quantity >= 1),
		CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
		CONSTRAINT fk_order_items_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS shipping_info (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		order_id   CHAR(36)     NOT NULL,
		first_name VARCHAR(50)  NOT NULL,
		last_name  VARCHAR(50)  NOT NULL,
		email      VARCHAR(100) NOT NULL,
		address    VARCHAR(100) NOT NULL,
		unit       VARCHAR(32)  NULL,
		city       VARCHAR(50)  NOT NULL,
		province   VARCHAR(50)  NOT NULL,
		zip_code   VARCHAR(7)   NOT NULL,
		country    VARCHAR(56)  NOT NULL DEFAULT 'CAN',
		UNIQUE KEY uq_shipping_order (order_id),
		CONSTRAINT fk_shipping_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payment_info (
		id              CHAR(36)     NOT NULL PRIMARY KEY,
		order_id        CHAR(36)     NOT NULL,
		card_number     VARCHAR(255) NOT NULL,
		card_holder     VARCHAR(101) NOT NULL,
		expiration_date CHAR(5)      NOT NULL,
		cvv             VARCHAR(255) NOT NULL,
		UNIQUE KEY uq_payment_order (order_id),
		CONSTRAINT fk_payment_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS contact_messages (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		email      VARCHAR(100) NOT NULL,
		message    VARCHAR(500) NOT NULL,
		created_at DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		KEY idx_contact_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS token_blacklist (
		id             CHAR(36)     NOT NULL PRIMARY KEY,
		token          VARCHAR(512) CHARACTER SET ascii COLLATE ascii_bin NOT NULL,
		blacklisted_at DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		expires_at     DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_token_blacklist_token (token),
		KEY idx_token_blacklist_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates every table the service needs if it does not exist yet.
// This is a convenience for development and single-node deployments; a
// managed migration tool should own the schema in production.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
