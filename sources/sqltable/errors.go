// Copyright © 2024 Meroxa, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqltable

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// classify marks err as transient or as an authentication failure, based on
// the error codes of the database. Other errors are returned unchanged.
func classify(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "28P01" || pgErr.Code == "28000": // invalid_password, invalid_authorization_specification
			return sdk.Unauthenticated(err)
		case strings.HasPrefix(pgErr.Code, "08"), // connection exception
			pgErr.Code == "40001", // serialization_failure
			pgErr.Code == "40P01", // deadlock_detected
			pgErr.Code == "53300", // too_many_connections
			pgErr.Code == "57P03": // cannot_connect_now
			return sdk.Transient(err)
		}
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1045: // access denied
			return sdk.Unauthenticated(err)
		case 1040, 1205, 1213: // too many connections, lock wait timeout, deadlock
			return sdk.Transient(err)
		}
		return err
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case 18456: // login failed
			return sdk.Unauthenticated(err)
		case 1205, -2: // deadlock, timeout
			return sdk.Transient(err)
		}
		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysql.ErrInvalidConn),
		pgconn.Timeout(err),
		errors.As(err, &netErr):
		return sdk.Transient(err)
	}
	return err
}
